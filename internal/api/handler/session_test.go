package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/api/handler"
	"github.com/carbontrack/carbontrack/internal/api/middleware"
	"github.com/carbontrack/carbontrack/internal/api/models"
	"github.com/carbontrack/carbontrack/internal/session"
)

func sessionRouter(svc *session.Service) http.Handler {
	h := handler.NewSessionHandler(svc, zerolog.Nop())
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionId}", func(r chi.Router) {
		r.Use(middleware.SessionAuth(svc.Tokens()))
		r.Get("/", h.GetSession)
		r.Post("/activity:toggle", h.ToggleActivity)
		r.Put("/activity/quantities/{name}", h.SetQuantity)
		r.Post("/footprint:calculate", h.Calculate)
		r.Put("/reduction/trees", h.SetTrees)
		r.Put("/reduction/earth-hours", h.SetEarthHours)
		r.Post("/reduction/led:toggle", h.ToggleLED)
		r.Post("/reduction:apply", h.ApplyReduction)
	})
	return r
}

type sessionClient struct {
	t      *testing.T
	router http.Handler
	id     string
	token  string
}

func newSessionClient(t *testing.T) *sessionClient {
	t.Helper()
	router := sessionRouter(newSessionService())

	rec := do(t, router, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.SessionCreated
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	return &sessionClient{t: t, router: router, id: created.Session.ID, token: created.Token}
}

func (c *sessionClient) call(method, path, body string) (int, models.Session) {
	c.t.Helper()
	header := http.Header{"Authorization": {"Bearer " + c.token}}
	rec := do(c.t, c.router, method, "/sessions/"+c.id+path, body, header)

	var sess models.Session
	if rec.Code == http.StatusOK {
		require.NoError(c.t, json.NewDecoder(rec.Body).Decode(&sess))
	}
	return rec.Code, sess
}

func TestSessionHandler_CreateSession(t *testing.T) {
	router := sessionRouter(newSessionService())

	rec := do(t, router, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.SessionCreated
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.Session.ID)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "Bearer", created.TokenType)
	assert.Equal(t, "/v1/sessions/"+created.Session.ID, rec.Header().Get("Location"))

	fp := created.Session.Footprint
	require.NotNil(t, fp.Total)
	assert.Zero(t, *fp.Total)
	assert.Equal(t, "0.00", fp.TotalDisplay)
	assert.Equal(t, "0.00", fp.OffsetDisplay)
}

func TestSessionHandler_WorkedExample(t *testing.T) {
	c := newSessionClient(t)

	code, _ := c.call(http.MethodPost, "/activity:toggle", `{"flag":"car"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.call(http.MethodPost, "/activity:toggle", `{"flag":"ac"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.call(http.MethodPut, "/activity/quantities/electricity", `{"value":"2"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.call(http.MethodPut, "/activity/quantities/meat", `{"value":1}`)
	require.Equal(t, http.StatusOK, code)

	code, sess := c.call(http.MethodPost, "/footprint:calculate", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2", sess.Activity.Electricity)
	assert.Equal(t, "1", sess.Activity.Meat)
	require.NotNil(t, sess.Footprint.Total)
	assert.InDelta(t, 52.8, *sess.Footprint.Total, 1e-9)
	assert.Equal(t, "52.80", sess.Footprint.TotalDisplay)
	assert.Equal(t, "26.40", sess.Footprint.OffsetDisplay)

	code, _ = c.call(http.MethodPut, "/reduction/trees", `{"value":"10"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.call(http.MethodPut, "/reduction/earth-hours", `{"value":"1"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.call(http.MethodPost, "/reduction/led:toggle", "")
	require.Equal(t, http.StatusOK, code)

	code, sess = c.call(http.MethodPost, "/reduction:apply", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.Reduction{Trees: 10, EarthHour: 1, LEDLights: true}, sess.Reduction)
	assert.Equal(t, "52.80", sess.Footprint.TotalDisplay)
	// 26.4 - (0.58 + 1.6 + 0.5)
	assert.Equal(t, "23.72", sess.Footprint.OffsetDisplay)

	code, got := c.call(http.MethodGet, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, sess.Footprint, got.Footprint)
}

func TestSessionHandler_NaNFootprint(t *testing.T) {
	c := newSessionClient(t)

	code, _ := c.call(http.MethodPut, "/activity/quantities/meat", `{"value":"abc"}`)
	require.Equal(t, http.StatusOK, code)

	code, sess := c.call(http.MethodPost, "/footprint:calculate", "")
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, sess.Footprint.Total)
	assert.Nil(t, sess.Footprint.Offset)
	assert.Equal(t, "NaN", sess.Footprint.TotalDisplay)
	assert.Equal(t, "NaN", sess.Footprint.OffsetDisplay)
}

func TestSessionHandler_ReductionParsing(t *testing.T) {
	c := newSessionClient(t)

	code, sess := c.call(http.MethodPut, "/reduction/trees", `{"value":"12abc"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 12, sess.Reduction.Trees)

	code, sess = c.call(http.MethodPut, "/reduction/trees", `{"value":"-3"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, sess.Reduction.Trees)

	code, sess = c.call(http.MethodPut, "/reduction/earth-hours", `{"value":"x"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, sess.Reduction.EarthHour)

	code, sess = c.call(http.MethodPut, "/reduction/earth-hours", `{"value":3}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, sess.Reduction.EarthHour)
}

func TestSessionHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"unknown flag", http.MethodPost, "/activity:toggle", `{"flag":"boat"}`, http.StatusBadRequest},
		{"malformed toggle body", http.MethodPost, "/activity:toggle", `{"flag":`, http.StatusBadRequest},
		{"unknown quantity", http.MethodPut, "/activity/quantities/water", `{"value":"1"}`, http.StatusNotFound},
		{"boolean value", http.MethodPut, "/activity/quantities/meat", `{"value":true}`, http.StatusBadRequest},
		{"array value", http.MethodPut, "/reduction/trees", `{"value":[1]}`, http.StatusBadRequest},
		{"missing body", http.MethodPut, "/reduction/earth-hours", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newSessionClient(t)
			code, _ := c.call(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)

			// Rejected requests leave the session unchanged.
			code, sess := c.call(http.MethodGet, "", "")
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, models.Activity{}, sess.Activity)
			assert.Equal(t, models.Reduction{}, sess.Reduction)
		})
	}
}

func TestSessionHandler_Authorization(t *testing.T) {
	svc := newSessionService()
	router := sessionRouter(svc)

	s1, token1, err := svc.Start(t.Context())
	require.NoError(t, err)
	s2, _, err := svc.Start(t.Context())
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/sessions/"+s1.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/sessions/"+s1.ID, "", http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/sessions/"+s2.ID, "", http.Header{"Authorization": {"Bearer " + token1}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/sessions/"+s1.ID, "", http.Header{"Authorization": {"Bearer " + token1}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionHandler_SweptSession(t *testing.T) {
	repo := session.NewInMemoryRepository()
	svc := session.NewService(session.ServiceConfig{
		Repository: repo,
		Tokens:     session.NewTokenService(session.TokenConfig{SigningKey: "test-signing-key-with-enough-bytes"}),
		Logger:     zerolog.Nop(),
	})
	router := sessionRouter(svc)

	sess, token, err := svc.Start(t.Context())
	require.NoError(t, err)
	require.NoError(t, repo.Delete(t.Context(), sess.ID))

	rec := do(t, router, http.MethodPost, "/sessions/"+sess.ID+"/footprint:calculate", "",
		http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
