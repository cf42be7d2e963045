package middleware

import (
	"mime"
	"net/http"

	"github.com/DeyanBora/ElasticSearch.API/pkg/httputil"
	"github.com/DeyanBora/ElasticSearch.API/pkg/logger"
)

// RequireJSON rejects requests that carry a body with a Content-Type other
// than application/json. Bodiless requests pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:      "UNSUPPORTED_MEDIA_TYPE",
					Message:   "Content-Type must be application/json",
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
