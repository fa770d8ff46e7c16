package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/api/models"
	"github.com/carbontrack/carbontrack/internal/api/response"
	"github.com/carbontrack/carbontrack/internal/environment"
)

// EnvironmentHandler handles weather and air quality endpoints.
type EnvironmentHandler struct {
	fetcher *environment.Fetcher
	logger  zerolog.Logger
}

// NewEnvironmentHandler creates a new EnvironmentHandler.
func NewEnvironmentHandler(fetcher *environment.Fetcher, logger zerolog.Logger) *EnvironmentHandler {
	return &EnvironmentHandler{fetcher: fetcher, logger: logger}
}

// GetEnvironment handles GET /v1/environment - the weather and AQI currently held.
func (h *EnvironmentHandler) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, toEnvironmentModel(h.fetcher.Snapshot()))
}

// Refresh handles POST /v1/environment:refresh - re-run both fetches once.
// A failed fetch keeps its previous data and is reported in the body.
func (h *EnvironmentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result := h.fetcher.Refresh(r.Context())
	if err := result.Err(); err != nil {
		h.logger.Warn().Err(err).Msg("environment refresh incomplete")
	}

	response.JSON(w, r, http.StatusOK, models.EnvironmentRefresh{
		Weather:     toFetchStatus(result.WeatherErr),
		AirQuality:  toFetchStatus(result.AirQualityErr),
		Environment: toEnvironmentModel(h.fetcher.Snapshot()),
	})
}
