package handler

import (
	"context"
	"net/http"
	"time"

	"squadhub/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// Check handles GET /health. Any unhealthy configured component turns the
// response into a 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    "1.0.0",
		Service:    "squadhub",
		Components: h.container.Health(ctx),
	}

	status := http.StatusOK
	for name, state := range response.Components {
		if state == "unhealthy" {
			logger.WithField("component", name).Warn("Health check found an unhealthy component")
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, status, response)
}
