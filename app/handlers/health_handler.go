package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	ready func() error
}

// NewHealthHandler creates a new health handler. ready may be nil.
func NewHealthHandler(ready func() error) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Health handles health check
func (h *HealthHandler) Health(c *gin.Context) {
	respondJSON(c, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles readiness check
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			respondError(c, http.StatusServiceUnavailable, "not ready", map[string]string{"error": err.Error()})
			return
		}
	}
	respondJSON(c, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
