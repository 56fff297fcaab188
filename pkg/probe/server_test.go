package probe_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"dkp_bot/pkg/probe"
)

func TestServer(t *testing.T) {
	testCases := []struct {
		name       string
		endpoint   string
		checkErr   error
		statusCode int
		body       string
	}{
		{
			name:       "Health handler",
			endpoint:   "/healthz",
			statusCode: http.StatusOK,
			body:       `{"name":"dkp-bot","version":"v0.0.1"}`,
		},
		{
			name:       "Health ignores checks",
			endpoint:   "/healthz",
			checkErr:   errors.New("connection refused"),
			statusCode: http.StatusOK,
			body:       `{"name":"dkp-bot","version":"v0.0.1"}`,
		},
		{
			name:       "Ready handler",
			endpoint:   "/ready",
			statusCode: http.StatusOK,
			body:       `{"name":"dkp-bot","version":"v0.0.1"}`,
		},
		{
			name:       "Not ready",
			endpoint:   "/ready",
			checkErr:   errors.New("connection refused"),
			statusCode: http.StatusServiceUnavailable,
			body:       `{"name":"dkp-bot","version":"v0.0.1","failed":{"postgres":"connection refused"}}`,
		},
		{
			name:       "Invalid endpoint",
			endpoint:   "/invalid",
			statusCode: http.StatusNotFound,
			body:       "404 page not found\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			probeServer := probe.NewServer(":0", probe.Options{Name: "dkp-bot", Version: "v0.0.1"}).
				WithCheck("postgres", func(context.Context) error { return tc.checkErr }).
				WithCheck("redis", func(context.Context) error { return nil })

			srv := httptest.NewServer(probeServer.Handler())
			defer srv.Close()

			resp, err := srv.Client().Get(srv.URL + tc.endpoint)
			rq.NoError(err)

			defer resp.Body.Close()

			rq.Equal(tc.statusCode, resp.StatusCode)

			bodyBytes, err := io.ReadAll(resp.Body)
			rq.NoError(err)

			if tc.statusCode == http.StatusNotFound {
				rq.Equal(tc.body, string(bodyBytes))
				return
			}
			rq.JSONEq(tc.body, string(bodyBytes))
		})
	}
}

func TestServerRun(t *testing.T) {
	rq := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return probe.NewServer("127.0.0.1:10001", probe.Options{Name: "dkp-bot"}).Run(ctx)
	})

	// Wait for server to start.
	time.Sleep(time.Second)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:10001/healthz", http.NoBody)
	rq.NoError(err)

	resp, err := http.DefaultClient.Do(req)
	rq.NoError(err)
	resp.Body.Close()

	rq.Equal(http.StatusOK, resp.StatusCode)

	cancel()

	rq.NoError(g.Wait())
}
