package amocrm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/httpx"
	"dkp_bot/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	leadsPageLimit   = 250
	errorBodyMaxLen  = 512
	defaultMaxPages  = 100
	defaultRateLimit = 7
)

// FieldMapping описывает, где в сделке лежат нужные атрибуты.
type FieldMapping struct {
	ContractFieldID  int64
	ContractEnumID   int64
	ContractValue    string
	DaysLimitFieldID int64
	// Необязательное поле, определяющее проект сделки.
	ProjectFieldID int64
	ProjectValues  map[string]string
}

// Config описывает аккаунт. DaysLimits перекрывает DefaultDaysLimit для
// отдельных проектов.
type Config struct {
	BaseURL          string
	Token            string
	DefaultProject   string
	DefaultDaysLimit int
	DaysLimits       map[string]int
	RateLimit        float64
	MaxPages         int
	Timeout          time.Duration
	LogFieldMaxLen   int
	Fields           FieldMapping
}

// Client читает сделки одного аккаунта amoCRM.
type Client struct {
	baseURL          *url.URL
	httpClient       *http.Client
	limiter          *rate.Limiter
	maxPages         int
	fields           FieldMapping
	defaultProject   string
	defaultDaysLimit int
	daysLimits       map[string]int
}

func NewClient(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	transport := httpx.NewAuthBearerRoundTripper(
		httpx.NewLoggingRoundTripper(
			http.DefaultTransport,
			httpx.WithClientName("amocrm"),
			httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
			httpx.WithLogFieldMaxLen(cfg.LogFieldMaxLen),
		),
		httpx.StaticBearer(cfg.Token),
	)

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter:          rate.NewLimiter(rate.Limit(rateLimit), 1),
		maxPages:         maxPages,
		fields:           cfg.Fields,
		defaultProject:   cfg.DefaultProject,
		defaultDaysLimit: cfg.DefaultDaysLimit,
		daysLimits:       cfg.DaysLimits,
	}, nil
}

// ListFunnels возвращает этапы воронки.
func (c *Client) ListFunnels(ctx context.Context, pipelineID int64) ([]entity.Funnel, error) {
	var resp pipelineResponse

	status, err := c.get(ctx, c.endpoint("/api/v4/leads/pipelines/"+strconv.FormatInt(pipelineID, 10), nil), &resp)
	if err != nil {
		return nil, fmt.Errorf("get pipeline %d: %w", pipelineID, err)
	}

	if status == http.StatusNoContent {
		return nil, nil
	}

	funnels := make([]entity.Funnel, 0, len(resp.Embedded.Statuses))
	for _, s := range resp.Embedded.Statuses {
		funnels = append(funnels, entity.Funnel{ID: s.ID, Name: s.Name})
	}

	return funnels, nil
}

// Pages лениво обходит страницы сделок этапа по ссылке next. Каждый вызов
// начинает обход заново с первой страницы. Ошибка завершает обход.
func (c *Client) Pages(ctx context.Context, pipelineID, funnelID int64) iter.Seq2[LeadsPage, error] {
	return func(yield func(LeadsPage, error) bool) {
		next := c.leadsURL(pipelineID, funnelID)

		for number := 1; next != ""; number++ {
			if number > c.maxPages {
				yield(LeadsPage{}, domain.NewErrorf(errcodes.RemoteFetchFailed,
					"funnel %d: page limit %d exceeded", funnelID, c.maxPages))
				return
			}

			var resp leadsResponse

			status, err := c.get(ctx, next, &resp)
			if err != nil {
				yield(LeadsPage{}, fmt.Errorf("funnel %d page %d: %w", funnelID, number, err))
				return
			}

			if status == http.StatusNoContent {
				return
			}

			if !yield(LeadsPage{Number: number, Leads: resp.Embedded.Leads}, nil) {
				return
			}

			next, err = c.resolve(resp.nextHref())
			if err != nil {
				yield(LeadsPage{}, domain.WrapError(err, errcodes.RemoteFetchFailed, "invalid next link"))
				return
			}
		}
	}
}

// FetchActiveDealCandidates читает все страницы этапа и возвращает сделки,
// прошедшие фильтр по типу договора, в порядке выдачи CRM.
func (c *Client) FetchActiveDealCandidates(
	ctx context.Context,
	pipelineID, funnelID int64,
) ([]entity.DealCandidate, error) {
	var (
		candidates []entity.DealCandidate
		skipped    int
	)

	for page, err := range c.Pages(ctx, pipelineID, funnelID) {
		if err != nil {
			return nil, err
		}

		for _, lead := range page.Leads {
			candidate, ok := c.candidate(lead)
			if !ok {
				skipped++
				continue
			}
			candidates = append(candidates, candidate)
		}
	}

	logger(ctx).Debug(
		"amocrm leads fetched",
		slog.Int64(logx.FieldPipelineID, pipelineID),
		slog.Int64(logx.FieldFunnelID, funnelID),
		slog.Int("candidates", len(candidates)),
		slog.Int("skipped", skipped),
	)

	return candidates, nil
}

// candidate применяет к сделке маппинг полей. false, если сделка не ДКП.
func (c *Client) candidate(lead Lead) (entity.DealCandidate, bool) {
	attrs := lead.attributes()

	if !c.isContract(attrs[c.fields.ContractFieldID]) {
		return entity.DealCandidate{}, false
	}

	project := c.project(attrs)

	return entity.DealCandidate{
		DealID:    lead.ID,
		DaysLimit: c.daysLimit(attrs[c.fields.DaysLimitFieldID], project),
		Project:   project,
	}, true
}

func (c *Client) isContract(values []FieldValue) bool {
	for _, v := range values {
		if c.fields.ContractEnumID != 0 && v.EnumID != c.fields.ContractEnumID {
			continue
		}
		if c.fields.ContractValue != "" && v.Value.String() != c.fields.ContractValue {
			continue
		}
		return true
	}
	return false
}

// daysLimit берёт срок из поля сделки. Пустое, нечисловое или отрицательное
// значение заменяется сроком по умолчанию для проекта.
func (c *Client) daysLimit(values []FieldValue, project string) int {
	if len(values) == 0 {
		return c.defaultDaysLimitFor(project)
	}

	days, ok := values[0].Value.Int()
	if !ok || days < 0 {
		return c.defaultDaysLimitFor(project)
	}

	return int(days)
}

func (c *Client) defaultDaysLimitFor(project string) int {
	if days, ok := c.daysLimits[project]; ok {
		return days
	}
	return c.defaultDaysLimit
}

func (c *Client) project(attrs map[int64][]FieldValue) string {
	if c.fields.ProjectFieldID == 0 {
		return c.defaultProject
	}

	for _, v := range attrs[c.fields.ProjectFieldID] {
		if project, ok := c.fields.ProjectValues[v.Value.String()]; ok {
			return project
		}
	}

	return c.defaultProject
}

func (c *Client) leadsURL(pipelineID, funnelID int64) string {
	q := url.Values{}
	q.Set("filter[statuses][0][pipeline_id]", strconv.FormatInt(pipelineID, 10))
	q.Set("filter[statuses][0][status_id]", strconv.FormatInt(funnelID, 10))
	q.Set("limit", strconv.Itoa(leadsPageLimit))

	return c.endpoint("/api/v4/leads", q)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL.JoinPath(path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) resolve(href string) (string, error) {
	if href == "" {
		return "", nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("url.Parse: %w", err)
	}

	return c.baseURL.ResolveReference(ref).String(), nil
}

// get выполняет GET и декодирует ответ. 204 возвращается без декодирования.
func (c *Client) get(ctx context.Context, rawURL string, dest any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, domain.WrapError(err, errcodes.RemoteFetchFailed, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, domain.WrapError(err, errcodes.RemoteFetchFailed, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, domain.WrapError(err, errcodes.RemoteFetchFailed, "request failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return resp.StatusCode, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxLen))
		return resp.StatusCode, domain.NewErrorf(errcodes.RemoteFetchFailed,
			"unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, domain.WrapError(err, errcodes.RemoteFetchFailed, "failed to decode response")
	}

	return resp.StatusCode, nil
}
