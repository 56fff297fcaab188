package profitbase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/httpx"
	"dkp_bot/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const (
	apiPrefix       = "/api/v4/json"
	authType        = "api-app"
	statusSuccess   = "success"
	errorBodyMaxLen = 512
)

type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	LogFieldMaxLen int
}

// Client ходит в Profitbase одного аккаунта за токеном и деталями сделки.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Transport: httpx.NewLoggingRoundTripper(
				http.DefaultTransport,
				httpx.WithClientName("profitbase"),
				httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
				httpx.WithLogFieldMaxLen(cfg.LogFieldMaxLen),
			),
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Authenticate обменивает API-ключ на токен доступа. Токен не кешируется:
// время его жизни определяет вызывающий.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(authRequest{
		Type:        authType,
		Credentials: authCredentials{APIKey: c.apiKey},
	})
	if err != nil {
		return "", domain.WrapError(err, errcodes.EnrichmentAuthFailed, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/authentication", nil), bytes.NewReader(body))
	if err != nil {
		return "", domain.WrapError(err, errcodes.EnrichmentAuthFailed, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp authResponse
	if err := c.do(req, &resp); err != nil {
		return "", domain.WrapError(err, errcodes.EnrichmentAuthFailed, "authentication failed")
	}

	if resp.AccessToken == "" {
		return "", domain.NewError(errcodes.EnrichmentAuthFailed, "empty access token")
	}

	return resp.AccessToken, nil
}

// FetchDealDetail получает объект сделки и приводит его к записи хранилища.
// days_limit заполняет вызывающий.
func (c *Client) FetchDealDetail(ctx context.Context, dealID int64, project, token string) (entity.Deal, error) {
	q := url.Values{}
	q.Set("access_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/property/deal/"+strconv.FormatInt(dealID, 10), q), http.NoBody)
	if err != nil {
		return entity.Deal{}, domain.WrapError(err, errcodes.EnrichmentDataFailed, "failed to build request")
	}

	var resp dealResponse
	if err := c.do(req, &resp); err != nil {
		return entity.Deal{}, domain.WrapError(err, errcodes.EnrichmentDataFailed,
			fmt.Sprintf("deal %d: request failed", dealID))
	}

	if resp.Status != statusSuccess {
		return entity.Deal{}, domain.NewErrorf(errcodes.EnrichmentDataFailed,
			"deal %d: unexpected status %q", dealID, resp.Status)
	}

	if len(resp.Data) == 0 {
		return entity.Deal{}, domain.NewErrorf(errcodes.EnrichmentDataFailed, "deal %d: no property data", dealID)
	}

	return toDeal(dealID, project, resp.Data[0])
}

func toDeal(dealID int64, project string, d dealDetail) (entity.Deal, error) {
	object, err := strconv.Atoi(strings.TrimSpace(string(d.Number)))
	if err != nil {
		return entity.Deal{}, domain.WrapError(err, errcodes.EnrichmentDataFailed,
			fmt.Sprintf("deal %d: invalid object number %q", dealID, d.Number))
	}

	registered := firstNonEmpty(d.SoldAt, d.BookedAt)
	if registered == "" {
		return entity.Deal{}, domain.NewErrorf(errcodes.EnrichmentDataFailed,
			"deal %d: neither soldAt nor bookedAt is set", dealID)
	}

	createdOn, err := ParseRegisteredAt(registered)
	if err != nil {
		return entity.Deal{}, domain.WrapError(err, errcodes.EnrichmentDataFailed,
			fmt.Sprintf("deal %d: invalid registration date %q", dealID, registered))
	}

	var facing string
	if d.Attributes.Facing != nil {
		facing = *d.Attributes.Facing
	}

	return entity.Deal{
		DealID:     dealID,
		Project:    project,
		House:      ParseHouse(d.HouseName),
		ObjectType: ObjectType(d.PropertyType),
		Object:     object,
		Facing:     facing,
		CreatedOn:  createdOn,
	}, nil
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v
		}
	}
	return ""
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL.JoinPath(apiPrefix, path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpClient.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxLen))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}

	return nil
}
