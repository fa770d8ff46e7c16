// Package response writes JSON API responses. Every response carries the
// request ID: as X-Request-Id on success and as the problem trace ID on error.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/carbontrack/carbontrack/internal/api/middleware"
	"github.com/carbontrack/carbontrack/internal/api/models"
)

// JSON writes data as a JSON body with the given status. A nil data writes
// no body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, r, status, data)
}

// Created writes a 201 with a Location header pointing at the new resource.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	writeJSON(w, r, http.StatusCreated, data)
}

// Error writes a Problem+JSON response for the request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

// InternalError writes a 500 problem. detail must not leak internals.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if id := traceID(r); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // status already sent
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
