package handler

import (
	"errors"
	"net/http"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ExecuteStrategy godoc
// @Summary      Run one strategy orchestration cycle
// @Description  Evaluates the eligible strategies for a symbol/timeframe and returns the fused recommendation
// @Tags         strategies
// @Accept       json
// @Produce      json
// @Param        request  body  service.StrategyRequest  true  "Symbol, timeframe and optional strategy name"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/strategies/execute [post]
func (h *Handler) ExecuteStrategy(c *gin.Context) {
	if h.orchestrator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orchestrator unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.execute-strategy")
	defer span.End()

	var req service.StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("timeframe", req.Timeframe),
	)

	rec, err := h.orchestrator.ExecuteStrategy(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":                err.Error(),
				"supported_timeframes": domain.SupportedTimeframes,
			})
		case errors.Is(err, domain.ErrDataUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

// GetStrategies godoc
// @Summary      List available strategies
// @Description  Returns the registered strategy names and their supported timeframes
// @Tags         strategies
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/strategies [get]
func (h *Handler) GetStrategies(c *gin.Context) {
	if h.orchestrator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orchestrator unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-strategies")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"strategies": h.orchestrator.GetAvailableStrategies(ctx)})
}
