package handler

import (
	"github.com/companiondir/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports process liveness
type HealthHandler struct {
	BaseHandler
	service string
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service, version string) *HealthHandler {
	return &HealthHandler{service: service, version: version}
}

// Health returns the service name and version.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, dto.HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Version: h.version,
	})
}
