package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/navneeth/viralvibes/domain/dto"
	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/playlist"
	"github.com/navneeth/viralvibes/infrastructure/logger"
	"github.com/navneeth/viralvibes/usecase"
)

type IAnalysisHandler interface {
	SubmitJob(ctx *gin.Context)
	Preview(ctx *gin.Context)
	JobProgress(ctx *gin.Context)
	FullRender(ctx *gin.Context)
}

type AnalysisHandler struct {
	analysisUsecase usecase.IAnalysisUsecase
}

func NewAnalysisHandler(uc usecase.IAnalysisUsecase) IAnalysisHandler {
	return &AnalysisHandler{analysisUsecase: uc}
}

// SubmitJob accepts a playlist URL and either routes to an existing dashboard
// or returns the progress token for a (possibly just-enqueued) job.
func (h *AnalysisHandler) SubmitJob(ctx *gin.Context) {
	var req dto.SubmitJobRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "playlist_url is required"})
		return
	}

	resp, err := h.analysisUsecase.Submit(ctx.Request.Context(), req.PlaylistURL)
	if err != nil {
		if errors.Is(err, playlist.ErrInvalidURL) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.GetLogger().WithField("url", req.PlaylistURL).WithField("error", err.Error()).Error("Submit failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "submit failed"})
		return
	}

	// Classic form posts get a real redirect to the dashboard; API clients
	// asking for JSON receive the payload and navigate themselves.
	if resp.Outcome == dto.SubmitOutcomeRedirect && !strings.Contains(ctx.GetHeader("Accept"), "application/json") {
		ctx.Redirect(http.StatusSeeOther, resp.RedirectURL)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Preview returns lightweight playlist metadata with no per-video calls.
func (h *AnalysisHandler) Preview(ctx *gin.Context) {
	rawURL := ctx.Query("playlist_url")
	if rawURL == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "playlist_url is required"})
		return
	}

	meta, err := h.analysisUsecase.Preview(ctx.Request.Context(), rawURL)
	if err != nil {
		if errors.Is(err, playlist.ErrInvalidURL) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.GetLogger().WithField("url", rawURL).WithField("error", err.Error()).Warn("Preview fetch failed")
		ctx.JSON(http.StatusOK, gin.H{"error": "preview unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, meta)
}

// JobProgress is polled every 2 seconds by the UI. Completion carries a
// redirect payload to the dashboard.
func (h *AnalysisHandler) JobProgress(ctx *gin.Context) {
	rawURL := ctx.Query("playlist_url")
	if rawURL == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "playlist_url is required"})
		return
	}

	view, err := h.analysisUsecase.Progress(ctx.Request.Context(), rawURL)
	if err != nil {
		switch {
		case errors.Is(err, playlist.ErrInvalidURL):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, model.ErrNotFound):
			ctx.JSON(http.StatusOK, gin.H{"error": "no analysis job found for this playlist"})
		default:
			logger.GetLogger().WithField("url", rawURL).WithField("error", err.Error()).Error("Progress read failed")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "progress unavailable"})
		}
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// FullRender streams the materialized view for a completed analysis.
func (h *AnalysisHandler) FullRender(ctx *gin.Context) {
	rawURL := ctx.Query("playlist_url")
	if rawURL == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "playlist_url is required"})
		return
	}

	view, err := h.analysisUsecase.FullView(ctx.Request.Context(), rawURL)
	if err != nil {
		switch {
		case errors.Is(err, playlist.ErrInvalidURL):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, model.ErrNotFound):
			ctx.JSON(http.StatusOK, gin.H{"error": "no analysis found for this playlist"})
		default:
			logger.GetLogger().WithField("url", rawURL).WithField("error", err.Error()).Error("Full render failed")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		}
		return
	}
	ctx.JSON(http.StatusOK, view)
}
