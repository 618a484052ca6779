package handler

import (
	"context"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type ExecutionLister interface {
	ListExecutions(ctx context.Context, filter domain.ExecutionFilter) ([]domain.ExecutionRecord, error)
}

type Handler struct {
	tracer       trace.Tracer
	orchestrator *service.Orchestrator
	executions   ExecutionLister
}

func New(
	tracer trace.Tracer,
	orchestrator *service.Orchestrator,
	executions ExecutionLister,
) *Handler {
	return &Handler{
		tracer:       tracer,
		orchestrator: orchestrator,
		executions:   executions,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/api/strategies/execute", h.ExecuteStrategy)
	r.GET("/api/strategies", h.GetStrategies)
	r.GET("/api/executions", h.GetExecutions)
	r.GET("/api/status", h.GetStatus)
}
