package middlewarex_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/logx"
	"dkp_bot/pkg/middlewarex"
)

func TestTraceID(t *testing.T) {
	testCases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "Trace header",
			headers: map[string]string{"X-Trace-Id": "trace-1", "X-Request-Id": "request-1"},
			want:    "trace-1",
		},
		{
			name:    "Request id fallback",
			headers: map[string]string{"X-Request-Id": "request-1"},
			want:    "request-1",
		},
		{
			name: "Generated",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			var got contextx.TraceID
			h := middlewarex.TraceID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				traceID, err := contextx.TraceIDFromContext(r.Context())
				rq.NoError(err)
				got = traceID
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/deals", http.NoBody)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			rq.NotEmpty(got)
			if tc.want != "" {
				rq.Equal(tc.want, got.String())
			}
			rq.Equal(got.String(), rec.Header().Get("X-Trace-Id"))
		})
	}
}

func TestRecovery(t *testing.T) {
	rq := require.New(t)

	h := middlewarex.TraceID(middlewarex.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/deals", http.NoBody)
	req.Header.Set("X-Trace-Id", "trace-1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	rq.Equal(http.StatusInternalServerError, rec.Code)
	rq.Contains(rec.Body.String(), `"supportId":"trace-1"`)
}

func TestMetrics(t *testing.T) {
	rq := require.New(t)

	reg := prometheus.NewRegistry()

	r := chi.NewRouter()
	r.Use(middlewarex.Metrics(reg))
	r.Get("/v1/deals/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/v1/deals", func(http.ResponseWriter, *http.Request) {})

	for _, path := range []string{"/v1/deals/1", "/v1/deals/2", "/v1/deals"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	families, err := reg.Gather()
	rq.NoError(err)
	rq.Len(families, 2)

	count, err := testutil.GatherAndCount(reg, "dkp_http_requests_total")
	rq.NoError(err)
	// Две серии: шаблон с id и список.
	rq.Equal(2, count)
}

func TestLogging(t *testing.T) {
	rq := require.New(t)

	masker := logx.NewNopSensitiveDataMasker()

	h := middlewarex.RequestLogging(masker, 16)(middlewarex.ResponseLogging(masker, 16)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"items":[],"total":0}`))
		}),
	))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/deals/stats", http.NoBody))

	rq.Equal(http.StatusOK, rec.Code)
	rq.Equal(`{"items":[],"total":0}`, rec.Body.String())
}
