package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/carbontrack/carbontrack/internal/api/models"
)

// Limit is a request budget per key over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

var (
	// RefreshLimit guards manual environment refreshes, which call both
	// external providers.
	RefreshLimit = Limit{Requests: 5, Window: time.Minute}

	// SessionStartLimit guards session creation, including page loads.
	SessionStartLimit = Limit{Requests: 30, Window: time.Minute}

	// StandardLimit covers everything else.
	StandardLimit = Limit{Requests: 100, Window: time.Minute}
)

// ByIP limits per client address. Run chi's RealIP first behind a proxy.
func (l Limit) ByIP() func(http.Handler) http.Handler {
	return l.middleware(httprate.KeyByRealIP)
}

// BySession limits per authorized session, falling back to the client
// address when SessionAuth has not run.
func (l Limit) BySession() func(http.Handler) http.Handler {
	return l.middleware(func(r *http.Request) (string, error) {
		if id := GetSessionID(r.Context()); id != "" {
			return "session:" + id, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func (l Limit) middleware(key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(l.Requests, l.Window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(l.exceeded),
	)
}

// exceeded answers 429. httprate does not expose the reset time, so the
// full window is advertised in Retry-After.
func (l Limit) exceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(int(l.Window/time.Second)))

	deny(w, r, models.NewTooManyRequests, "Rate limit exceeded. Please try again later.")
}
