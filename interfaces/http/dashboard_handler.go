package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navneeth/viralvibes/domain/dto"
	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/infrastructure/logger"
	"github.com/navneeth/viralvibes/usecase"
)

type IDashboardHandler interface {
	GetDashboard(ctx *gin.Context)
	RecordEvent(ctx *gin.Context)
}

type DashboardHandler struct {
	analysisUsecase usecase.IAnalysisUsecase
}

func NewDashboardHandler(uc usecase.IAnalysisUsecase) IDashboardHandler {
	return &DashboardHandler{analysisUsecase: uc}
}

// GetDashboard serves the shareable materialized view at /d/:id. Every hit
// records a view event; event failures never block the response.
func (h *DashboardHandler) GetDashboard(ctx *gin.Context) {
	dashboardID := ctx.Param("id")
	view, err := h.analysisUsecase.Dashboard(ctx.Request.Context(), dashboardID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "this playlist dashboard does not exist"})
			return
		}
		logger.GetLogger().WithField("dashboard_id", dashboardID).WithField("error", err.Error()).Error("Dashboard read failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "dashboard unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// RecordEvent appends a share or export interaction.
func (h *DashboardHandler) RecordEvent(ctx *gin.Context) {
	dashboardID := ctx.Param("id")
	var req dto.RecordEventRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "event_type is required"})
		return
	}

	if err := h.analysisUsecase.RecordEvent(ctx.Request.Context(), dashboardID, req.EventType); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "this playlist dashboard does not exist"})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"recorded": true, "dashboard_id": dashboardID, "event_type": req.EventType})
}
