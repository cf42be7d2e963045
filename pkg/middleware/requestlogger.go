package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DeyanBora/ElasticSearch.API/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context carrying
// correlation_id, trace_id and span_id. Mount it after RequestLogging and
// Tracing so both ids are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
