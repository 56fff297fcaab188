package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrTokenRejected возвращается, когда сервер отверг токен, который нельзя
// перевыпустить.
var ErrTokenRejected = errors.New("bearer token rejected")

type authenticator interface {
	Authenticate(context.Context) error
	BearerToken() string
}

type AuthBearerRoundTripper struct {
	next          http.RoundTripper
	authenticator authenticator
}

func NewAuthBearerRoundTripper(
	next http.RoundTripper,
	authenticator authenticator,
) AuthBearerRoundTripper {
	return AuthBearerRoundTripper{
		next:          next,
		authenticator: authenticator,
	}
}

func (rt AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.authenticator.BearerToken() == "" {
		if err := rt.authenticator.Authenticate(req.Context()); err != nil {
			return nil, fmt.Errorf("authenticator.Authenticate: %w", err)
		}
	}

	// RoundTrip не должен менять исходный запрос.
	authReq := req.Clone(req.Context())
	rt.setAuthorizationHeader(authReq)

	resp, err := rt.next.RoundTrip(authReq)
	if err != nil {
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()

		if err = rt.authenticator.Authenticate(req.Context()); err != nil {
			return nil, fmt.Errorf("authenticator.Authenticate: %w", err)
		}

		authReq = req.Clone(req.Context())
		rt.setAuthorizationHeader(authReq)

		return rt.next.RoundTrip(authReq) //nolint:wrapcheck
	}

	return resp, nil
}

func (rt AuthBearerRoundTripper) setAuthorizationHeader(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+rt.authenticator.BearerToken())
}

// StaticBearer отдаёт долгоживущий токен интеграции. Перевыпустить его нельзя,
// поэтому 401 от сервера превращается в ErrTokenRejected.
type StaticBearer string

func (s StaticBearer) Authenticate(context.Context) error {
	return ErrTokenRejected
}

func (s StaticBearer) BearerToken() string {
	return string(s)
}
