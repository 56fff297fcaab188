package middlewarex

import (
	"net/http"

	"github.com/rs/xid"

	"dkp_bot/pkg/contextx"
)

const (
	headerNameTraceID   = "X-Trace-Id"
	headerNameRequestID = "X-Request-Id"
)

// TraceID берёт trace id из заголовков запроса или генерирует новый и
// возвращает его клиенту.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(headerNameTraceID)
		if traceID == "" {
			traceID = r.Header.Get(headerNameRequestID)
		}
		if traceID == "" {
			traceID = xid.New().String()
		}

		ctx := contextx.WithTraceID(r.Context(), contextx.TraceID(traceID))

		w.Header().Set(headerNameTraceID, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
