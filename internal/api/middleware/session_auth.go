package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carbontrack/carbontrack/internal/api/models"
	"github.com/carbontrack/carbontrack/internal/session"
)

// SessionIDParam is the route parameter holding the session ID.
const SessionIDParam = "sessionId"

type sessionIDKey struct{}

// TokenValidator is implemented by *session.TokenService.
type TokenValidator interface {
	Validate(token string) (*session.Claims, error)
}

// SessionAuth requires a bearer session token issued for the session in the
// route. A bad or missing token is a 401. A valid token for another session
// is a 403.
func SessionAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				deny(w, r, models.NewUnauthorized, problem)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				deny(w, r, models.NewUnauthorized, tokenProblem(err))
				return
			}

			if id := chi.URLParam(r, SessionIDParam); id != "" && id != claims.SessionID {
				deny(w, r, models.NewForbidden, "token does not grant access to this session")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey{}, claims.SessionID)))
		})
	}
}

// GetSessionID returns the session ID authorized by SessionAuth, or "".
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is case-insensitive. On failure it returns the problem detail.
func bearerToken(header string) (token, problem string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func tokenProblem(err error) string {
	switch {
	case errors.Is(err, session.ErrTokenExpired):
		return "session token has expired"
	case errors.Is(err, session.ErrInvalidToken):
		return "invalid session token"
	default:
		return "authentication failed"
	}
}
