package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireJSON(t *testing.T) {
	h := RequireJSON(okHandler)

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{"json", `{"title":"x"}`, "application/json", http.StatusOK},
		{"json with charset", `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"no body", "", "", http.StatusOK},
		{"form", "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing type", `{}`, "", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
