package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/api/middleware"
	"github.com/carbontrack/carbontrack/internal/api/models"
	"github.com/carbontrack/carbontrack/internal/api/response"
	"github.com/carbontrack/carbontrack/internal/footprint"
	"github.com/carbontrack/carbontrack/internal/session"
)

// maxBodyBytes caps JSON and form request bodies.
const maxBodyBytes = 64 << 10

// SessionHandler handles tracker session endpoints.
type SessionHandler struct {
	service *session.Service
	logger  zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *session.Service, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{service: service, logger: logger}
}

// CreateSession handles POST /v1/sessions - start a tracker session.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, token, err := h.service.Start(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to start session")
		response.InternalError(w, r, "failed to start session")
		return
	}

	created := models.SessionCreated{
		Session:   toSessionModel(sess),
		Token:     token,
		TokenType: "Bearer",
	}
	response.Created(w, r, "/v1/sessions/"+sess.ID, created)
}

// GetSession handles GET /v1/sessions/{sessionId} - get session state.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Get(r.Context(), sessionID(r))
	h.respond(w, r, sess, err)
}

// ToggleActivity handles POST /v1/sessions/{sessionId}/activity:toggle - flip an activity flag.
func (h *SessionHandler) ToggleActivity(w http.ResponseWriter, r *http.Request) {
	var input models.ToggleFlagRequest
	if !decodeBody(w, r, &input) {
		return
	}

	flag, err := footprint.ParseFlag(input.Flag)
	if err != nil {
		response.BadRequest(w, r, "unknown activity flag", []models.FieldError{
			{Field: "flag", Message: "must be one of car, ac, bike"},
		})
		return
	}

	sess, err := h.service.ToggleFlag(r.Context(), sessionID(r), flag)
	h.respond(w, r, sess, err)
}

// SetQuantity handles PUT /v1/sessions/{sessionId}/activity/quantities/{name} - store a raw quantity.
func (h *SessionHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	quantity, err := footprint.ParseQuantity(chi.URLParam(r, "name"))
	if err != nil {
		response.NotFound(w, r, "unknown activity quantity")
		return
	}

	var input models.ValueRequest
	if !decodeBody(w, r, &input) {
		return
	}

	sess, err := h.service.SetQuantity(r.Context(), sessionID(r), quantity, string(input.Value))
	h.respond(w, r, sess, err)
}

// Calculate handles POST /v1/sessions/{sessionId}/footprint:calculate - recompute the footprint.
func (h *SessionHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Calculate(r.Context(), sessionID(r))
	h.respond(w, r, sess, err)
}

// SetTrees handles PUT /v1/sessions/{sessionId}/reduction/trees - store the tree count.
func (h *SessionHandler) SetTrees(w http.ResponseWriter, r *http.Request) {
	var input models.ValueRequest
	if !decodeBody(w, r, &input) {
		return
	}

	sess, err := h.service.SetTreeCount(r.Context(), sessionID(r), string(input.Value))
	h.respond(w, r, sess, err)
}

// SetEarthHours handles PUT /v1/sessions/{sessionId}/reduction/earth-hours - store the Earth Hour count.
func (h *SessionHandler) SetEarthHours(w http.ResponseWriter, r *http.Request) {
	var input models.ValueRequest
	if !decodeBody(w, r, &input) {
		return
	}

	sess, err := h.service.SetEarthHours(r.Context(), sessionID(r), string(input.Value))
	h.respond(w, r, sess, err)
}

// ToggleLED handles POST /v1/sessions/{sessionId}/reduction/led:toggle - flip the LED flag.
func (h *SessionHandler) ToggleLED(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.ToggleLED(r.Context(), sessionID(r))
	h.respond(w, r, sess, err)
}

// ApplyReduction handles POST /v1/sessions/{sessionId}/reduction:apply - subtract the reduction from the offset.
func (h *SessionHandler) ApplyReduction(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.ApplyReduction(r.Context(), sessionID(r))
	h.respond(w, r, sess, err)
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, toSessionModel(sess))
	case errors.Is(err, session.ErrSessionNotFound):
		response.NotFound(w, r, "session not found")
	case errors.Is(err, footprint.ErrUnknownFlag), errors.Is(err, footprint.ErrUnknownQuantity):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		h.logger.Error().Err(err).Str("session_id", sessionID(r)).Msg("session operation failed")
		response.InternalError(w, r, "session operation failed")
	}
}

// sessionID returns the session named in the route. SessionAuth has already
// checked that the token was issued for it.
func sessionID(r *http.Request) string {
	if id := middleware.GetSessionID(r.Context()); id != "" {
		return id
	}
	return chi.URLParam(r, middleware.SessionIDParam)
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		detail := "invalid JSON body"
		if errors.Is(err, models.ErrInvalidRawValue) {
			detail = err.Error()
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	return true
}
