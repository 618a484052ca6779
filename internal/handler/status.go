package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus godoc
// @Summary      Orchestrator status
// @Description  Returns health plus cycle and signal counters
// @Tags         status
// @Produce      json
// @Success      200  {object}  service.OrchestratorStatus
// @Failure      503  {object}  map[string]string
// @Router       /api/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	if h.orchestrator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orchestrator unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-status")
	defer span.End()

	c.JSON(http.StatusOK, h.orchestrator.GetStatus(ctx))
}
