package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/environment"
	"github.com/carbontrack/carbontrack/internal/footprint"
	"github.com/carbontrack/carbontrack/internal/session"
	"github.com/carbontrack/carbontrack/internal/web"
)

// SessionCookie holds the signed session token of the page.
const SessionCookie = "carbontrack_session"

// PageConfig holds configuration for the page handler.
type PageConfig struct {
	Sessions *session.Service
	Fetcher  *environment.Fetcher
	Renderer *web.Renderer
	Logger   zerolog.Logger

	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// PageHandler serves the server-rendered tracker page.
type PageHandler struct {
	sessions     *session.Service
	fetcher      *environment.Fetcher
	renderer     *web.Renderer
	logger       zerolog.Logger
	secureCookie bool
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(cfg PageConfig) *PageHandler {
	return &PageHandler{
		sessions:     cfg.Sessions,
		fetcher:      cfg.Fetcher,
		renderer:     cfg.Renderer,
		logger:       cfg.Logger,
		secureCookie: cfg.SecureCookie,
	}
}

// Index handles GET / - every load starts a fresh session.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess, token, err := h.sessions.Start(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to start session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.render(w, sess)
}

// SubmitActivity handles POST /activity - the activity form.
func (h *PageHandler) SubmitActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formSession(w, r)
	if !ok {
		return
	}

	form := footprint.Activity{
		Car:         checked(r, "car"),
		AC:          checked(r, "ac"),
		Bike:        checked(r, "bike"),
		Electricity: r.PostForm.Get("electricity"),
		Meat:        r.PostForm.Get("meat"),
	}

	sess, err := h.sessions.SubmitActivity(r.Context(), id, form)
	h.respond(w, r, sess, err)
}

// SubmitReduction handles POST /reduction - the reduction form.
func (h *PageHandler) SubmitReduction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formSession(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.SubmitReduction(r.Context(), id,
		r.PostForm.Get("trees"),
		r.PostForm.Get("earthHour"),
		checked(r, "ledLights"),
	)
	h.respond(w, r, sess, err)
}

// formSession parses the form and resolves the cookie session. A request
// without a usable session is sent back to a fresh page.
func (h *PageHandler) formSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return "", false
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return "", false
	}

	claims, err := h.sessions.Tokens().Validate(cookie.Value)
	if err != nil {
		h.logger.Debug().Err(err).Msg("rejected page session cookie")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return "", false
	}
	return claims.SessionID, true
}

func (h *PageHandler) respond(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	switch {
	case err == nil:
		h.render(w, sess)
	case errors.Is(err, session.ErrSessionNotFound):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		h.logger.Error().Err(err).Msg("page form submission failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *PageHandler) render(w http.ResponseWriter, sess *session.Session) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, web.NewPageData(sess, h.fetcher.Snapshot())); err != nil {
		h.logger.Error().Err(err).Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func checked(r *http.Request, name string) bool {
	return r.PostForm.Get(name) != ""
}
