// Package middleware provides HTTP middleware for the CarbonTrack service.
package middleware

import (
	"context"
	"encoding/hex"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/carbontrack/carbontrack/internal/api/models"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

// Client IDs are kept only if they are short and header-safe.
var clientRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type requestIDKey struct{}

// RequestID tags each request with an ID, keeping a well-formed one sent by
// the client, and echoes it in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !clientRequestID.MatchString(id) {
			id = newRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// newRequestID returns "req_" followed by a time-ordered UUID in hex.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "req_" + hex.EncodeToString(id[:])
}

// deny writes a problem for the current request.
func deny(w http.ResponseWriter, r *http.Request, build func(traceID, detail string) *models.Problem, detail string) {
	problem := build(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}
