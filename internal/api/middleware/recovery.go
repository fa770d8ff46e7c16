package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem. If the handler had
// already started its response, the panic is only logged. http.ErrAbortHandler
// is passed through untouched.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &recorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(v)
				}

				log.Error().
					Str("request_id", GetRequestID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("panic", fmt.Sprint(v)).
					Bytes("stack", debug.Stack()).
					Bool("response_started", rec.status != 0).
					Msg("panic recovered")

				if rec.status == 0 {
					deny(w, r, models.NewInternalError, "an unexpected error occurred")
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
