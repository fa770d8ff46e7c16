// Package handler provides HTTP handlers for the CarbonTrack service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/carbontrack/carbontrack/internal/api/models"
	"github.com/carbontrack/carbontrack/internal/api/response"
	"github.com/carbontrack/carbontrack/internal/provider/resilience"
)

// readyTimeout bounds dependency checks on the readiness endpoint.
const readyTimeout = 2 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Subsystem is a named dependency checked for readiness.
type Subsystem struct {
	Name   string
	Pinger Pinger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   *resilience.Registry
	subsystems []Subsystem
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, subsystems ...Subsystem) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		registry:   registry,
		subsystems: subsystems,
	}
}

// HealthCheck handles GET /v1/ops/health. It only proves the process serves.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Only subsystems count; the page
// still renders while providers are down.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{Status: models.HealthStatusOK, Time: models.Timestamp(time.Now())}
	for _, s := range h.checkSubsystems(r.Context()) {
		if s.Status != models.HealthStatusOK {
			health.Failing = append(health.Failing, s.Name)
		}
	}

	code := http.StatusOK
	if len(health.Failing) > 0 {
		health.Status = models.HealthStatusFail
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.checkSubsystems(r.Context()),
		Providers:  h.providerStatuses(),
	}

	for _, p := range status.Providers {
		if p.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusFail
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkSubsystems(ctx context.Context) []models.SubsystemStatus {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	statuses := make([]models.SubsystemStatus, 0, len(h.subsystems))
	for _, s := range h.subsystems {
		st := models.SubsystemStatus{Name: s.Name, Status: models.HealthStatusOK}
		if err := s.Pinger.Ping(ctx); err != nil {
			detail := err.Error()
			st.Status = models.HealthStatusFail
			st.Detail = &detail
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}

	snapshot := h.registry.Snapshot()
	statuses := make([]models.ProviderStatus, len(snapshot))
	for i, p := range snapshot {
		statuses[i] = models.ProviderStatus{
			Provider:            p.Name,
			Status:              providerLevels[p.Level()],
			CircuitState:        p.State.String(),
			ConsecutiveFailures: int(p.ConsecutiveFailures),
			LastSuccessAt:       optionalTimestamp(p.LastSuccess),
			LastFailureAt:       optionalTimestamp(p.LastFailure),
		}
		if p.LastError != "" {
			msg := p.LastError
			statuses[i].Message = &msg
		}
	}
	return statuses
}

var providerLevels = map[resilience.Level]models.HealthStatus{
	resilience.LevelHealthy:  models.HealthStatusOK,
	resilience.LevelDegraded: models.HealthStatusDegraded,
	resilience.LevelDown:     models.HealthStatusFail,
}
