package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points a validation failure at one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem types are relative URI references resolved against the serving host.
const (
	ProblemTypeValidation           = "/problems/validation-error"
	ProblemTypeUnauthorized         = "/problems/unauthorized"
	ProblemTypeForbidden            = "/problems/forbidden"
	ProblemTypeNotFound             = "/problems/not-found"
	ProblemTypeUnsupportedMediaType = "/problems/unsupported-media-type"
	ProblemTypeTooManyRequests      = "/problems/too-many-requests"
	ProblemTypeTLSRequired          = "/problems/tls-required"
	ProblemTypeInternal             = "/problems/internal-error"
	ProblemTypeUnavailable          = "/problems/service-unavailable"
)

type problemKind struct {
	title  string
	status int
}

var problemKinds = map[string]problemKind{
	ProblemTypeValidation:           {"Validation error", http.StatusBadRequest},
	ProblemTypeUnauthorized:         {"Unauthorized", http.StatusUnauthorized},
	ProblemTypeForbidden:            {"Forbidden", http.StatusForbidden},
	ProblemTypeNotFound:             {"Not found", http.StatusNotFound},
	ProblemTypeUnsupportedMediaType: {"Unsupported media type", http.StatusUnsupportedMediaType},
	ProblemTypeTooManyRequests:      {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeTLSRequired:          {"TLS required", http.StatusForbidden},
	ProblemTypeInternal:             {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUnavailable:          {"Service unavailable", http.StatusServiceUnavailable},
}

// NewProblem builds a problem of a known type. Unknown types are reported
// as internal errors.
func NewProblem(problemType, traceID, detail string) *Problem {
	kind, ok := problemKinds[problemType]
	if !ok {
		problemType = ProblemTypeInternal
		kind = problemKinds[ProblemTypeInternal]
	}
	return &Problem{
		Type:    problemType,
		Title:   kind.title,
		Status:  kind.status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write sends the problem. The trace ID doubles as X-Request-Id.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p) //nolint:errcheck // status already sent
}

func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, traceID, detail)
	p.Errors = errors
	return p
}

func NewUnauthorized(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnauthorized, traceID, detail)
}

func NewForbidden(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeForbidden, traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNotFound, traceID, detail)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnsupportedMediaType, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, traceID, detail)
}

func NewTLSRequired(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTLSRequired, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInternal, traceID, detail)
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnavailable, traceID, detail)
}
