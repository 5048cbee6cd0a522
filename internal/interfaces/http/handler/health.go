package handler

import (
	"context"
	"net/http"
	"time"
)

const (
	serviceName = "payment-fraud-risk-api"

	// Bound on the dependency pings issued by the readiness check
	readinessTimeout = 5 * time.Second
)

// HealthChecker is an interface for services that can be health-checked
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the health, readiness and liveness endpoints. A nil
// checker means the dependency is disabled (standalone mode) and is reported
// as such without failing readiness.
type HealthHandler struct {
	dbClient    HealthChecker
	redisClient HealthChecker
	version     string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dbClient, redisClient HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		dbClient:    dbClient,
		redisClient: redisClient,
		version:     version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	services := map[string]string{
		"database": h.checkDependency(ctx, h.dbClient),
		"redis":    h.checkDependency(ctx, h.redisClient),
	}

	ready := true
	for _, status := range services {
		if status != "healthy" && status != "disabled" {
			ready = false
		}
	}

	response := HealthResponse{
		Service:   serviceName,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	if ready {
		response.Status = "ready"
		writeJSON(w, http.StatusOK, response)
	} else {
		response.Status = "not ready"
		writeJSON(w, http.StatusServiceUnavailable, response)
	}
}

func (h *HealthHandler) checkDependency(ctx context.Context, checker HealthChecker) string {
	if checker == nil {
		return "disabled"
	}
	if err := checker.Ping(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

// Live handles GET /live
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"service": serviceName,
	})
}
