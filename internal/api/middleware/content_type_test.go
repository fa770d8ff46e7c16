package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/api/middleware"
	"github.com/carbontrack/carbontrack/internal/api/models"
)

func TestContentTypeJSON(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		rec := get(middleware.ContentTypeJSON(serveStatus(http.StatusOK, "")), "/v1/environment")
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("handler override", func(t *testing.T) {
		page := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
		})
		rec := get(middleware.ContentTypeJSON(page), "/")
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	})
}

func TestRequireJSON(t *testing.T) {
	handler := middleware.RequireJSON(serveStatus(http.StatusNoContent, ""))

	tests := []struct {
		method      string
		contentType string
		want        int
	}{
		{http.MethodPut, "application/json", http.StatusNoContent},
		{http.MethodPost, "application/json; charset=utf-8", http.StatusNoContent},
		{http.MethodPost, "", http.StatusNoContent},
		{http.MethodGet, "text/plain", http.StatusNoContent},
		{http.MethodDelete, "text/plain", http.StatusNoContent},
		{http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{http.MethodPatch, "text/plain", http.StatusUnsupportedMediaType},
		{http.MethodPut, ";;", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/sessions/s1/reduction/trees", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			if tt.want != http.StatusUnsupportedMediaType {
				return
			}
			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, models.ProblemTypeUnsupportedMediaType, problem.Type)
			assert.Equal(t, "/v1/sessions/s1/reduction/trees", problem.Instance)
		})
	}
}
