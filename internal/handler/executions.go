package handler

import (
	"net/http"
	"strconv"
	"strings"

	"tradedeck/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetExecutions godoc
// @Summary      List execution ledger entries
// @Description  Returns recent executions, optionally filtered by symbol/strategy/status
// @Tags         executions
// @Produce      json
// @Param        symbol    query  string  false  "Asset symbol (e.g., RELIANCE)"
// @Param        strategy  query  string  false  "Strategy name (scalping, swing, btst, options, foarbitrage)"
// @Param        status    query  string  false  "Execution status (pending, active, closed)"
// @Param        limit     query  int     false  "Number of records (default 50, max 200)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/executions [get]
func (h *Handler) GetExecutions(c *gin.Context) {
	if h.executions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "execution store unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-executions")
	defer span.End()

	filter := domain.ExecutionFilter{
		Symbol:   strings.ToUpper(strings.TrimSpace(c.Query("symbol"))),
		Strategy: strings.ToLower(strings.TrimSpace(c.Query("strategy"))),
	}
	if filter.Symbol != "" {
		span.SetAttributes(attribute.String("symbol", filter.Symbol))
	}

	if rawStatus := strings.ToLower(strings.TrimSpace(c.Query("status"))); rawStatus != "" {
		status := domain.ExecutionStatus(rawStatus)
		switch status {
		case domain.ExecutionPending, domain.ExecutionActive, domain.ExecutionClosed:
			filter.Status = status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, active or closed"})
			return
		}
	}

	limit := 50
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = n
	}
	filter.Limit = limit

	records, err := h.executions.ListExecutions(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"executions": records})
}
