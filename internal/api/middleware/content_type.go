package middleware

import (
	"mime"
	"net/http"

	"github.com/carbontrack/carbontrack/internal/api/models"
)

const jsonMediaType = "application/json"

// ContentTypeJSON defaults the response Content-Type to JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if _, set := h["Content-Type"]; !set {
			h.Set("Content-Type", jsonMediaType)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON answers 415 when a request that carries a body declares a
// media type other than JSON. An absent Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if declared := r.Header.Get("Content-Type"); declared != "" && hasBody(r.Method) && !isJSON(declared) {
			deny(w, r, models.NewUnsupportedMediaType, "Content-Type must be "+jsonMediaType)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == jsonMediaType
}
