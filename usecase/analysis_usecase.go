package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/navneeth/viralvibes/domain/dto"
	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/playlist"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/logger"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

// progressPollSeconds is the cadence the UI polls /job-progress at.
const progressPollSeconds = 2

// IAnalysisUsecase is the submit/poll/read surface over the analysis
// subsystem: the cache-and-coalescing controller plus the dashboard read.
type IAnalysisUsecase interface {
	Submit(ctx context.Context, rawURL string) (*dto.SubmitJobResponse, error)
	Preview(ctx context.Context, rawURL string) (*model.PlaylistMetadata, error)
	Progress(ctx context.Context, rawURL string) (*dto.ProgressView, error)
	FullView(ctx context.Context, rawURL string) (*dto.DashboardView, error)
	Dashboard(ctx context.Context, dashboardID string) (*dto.DashboardView, error)
	RecordEvent(ctx context.Context, dashboardID, eventType string) error
}

type analysisUsecase struct {
	jobs         repository.IPlaylistJob
	stats        repository.IPlaylistStats
	events       repository.IDashboardEvent
	previewCache repository.IPreviewCache
	preview      repository.IPlaylistBackend // cheap metadata source; may be nil
}

func NewAnalysisUsecase(
	jobs repository.IPlaylistJob,
	stats repository.IPlaylistStats,
	events repository.IDashboardEvent,
	previewCache repository.IPreviewCache,
	previewBackend repository.IPlaylistBackend,
) IAnalysisUsecase {
	return &analysisUsecase{
		jobs:         jobs,
		stats:        stats,
		events:       events,
		previewCache: previewCache,
		preview:      previewBackend,
	}
}

// Submit is the coalescing gate: a fresh cache row or complete job routes to
// the dashboard, an active job is observed rather than duplicated, a blocked
// job surfaces blocked copy, and only failed-or-absent states enqueue.
func (u *analysisUsecase) Submit(ctx context.Context, rawURL string) (*dto.SubmitJobResponse, error) {
	canonical, err := playlist.Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	dashboardID := playlist.Fingerprint(canonical)
	redirectURL := "/d/" + dashboardID

	if _, err := u.stats.GetCachedStats(ctx, canonical, true); err == nil {
		logger.GetLogger().WithField("url", canonical).Info("Cache hit, routing to dashboard")
		return &dto.SubmitJobResponse{
			Outcome:     dto.SubmitOutcomeRedirect,
			DashboardID: dashboardID,
			RedirectURL: redirectURL,
		}, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("checking stats cache: %w", err)
	}

	job, err := u.jobs.GetLatestJob(ctx, canonical)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("checking job status: %w", err)
	}

	if job != nil {
		switch {
		case job.Status == model.JobStatusPending || job.Status == model.JobStatusProcessing:
			return &dto.SubmitJobResponse{
				Outcome:     dto.SubmitOutcomeInProgress,
				DashboardID: dashboardID,
				JobID:       job.ID,
				Progress:    u.progressView(ctx, canonical, dashboardID, job),
			}, nil
		case model.IsComplete(job.Status):
			// Stale cache is acceptable here; the read layer serves the
			// newest materialized row for the dashboard id.
			return &dto.SubmitJobResponse{
				Outcome:     dto.SubmitOutcomeRedirect,
				DashboardID: dashboardID,
				RedirectURL: redirectURL,
			}, nil
		case job.Status == model.JobStatusBlocked:
			return &dto.SubmitJobResponse{
				Outcome:     dto.SubmitOutcomeBlocked,
				DashboardID: dashboardID,
				JobID:       job.ID,
				Progress:    u.progressView(ctx, canonical, dashboardID, job),
			}, nil
		}
	}

	jobID, err := u.jobs.EnqueueJob(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("enqueueing job: %w", err)
	}
	logger.GetLogger().WithField("url", canonical).WithField("job_id", jobID).Info("Job enqueued")
	return &dto.SubmitJobResponse{
		Outcome:     dto.SubmitOutcomeEnqueued,
		DashboardID: dashboardID,
		JobID:       jobID,
	}, nil
}

// Preview serves cheap playlist metadata, memoized in Redis between the
// 2-second polls. No per-video calls are made.
func (u *analysisUsecase) Preview(ctx context.Context, rawURL string) (*model.PlaylistMetadata, error) {
	canonical, err := playlist.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	if u.previewCache != nil {
		if meta, err := u.previewCache.GetPreview(ctx, canonical); err == nil {
			return meta, nil
		}
	}
	if u.preview == nil {
		return nil, model.ErrNotFound
	}

	meta, err := u.preview.FetchPreview(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if u.previewCache != nil {
		if cacheErr := u.previewCache.SetPreview(ctx, canonical, meta); cacheErr != nil {
			logger.GetLogger().WithField("error", cacheErr).Warn("Preview cache write failed")
		}
	}
	return meta, nil
}

// Progress returns the structured view the UI polls.
func (u *analysisUsecase) Progress(ctx context.Context, rawURL string) (*dto.ProgressView, error) {
	canonical, err := playlist.Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	job, err := u.jobs.GetLatestJob(ctx, canonical)
	if err != nil {
		return nil, err
	}
	dashboardID := playlist.Fingerprint(canonical)
	return u.progressView(ctx, canonical, dashboardID, job), nil
}

func (u *analysisUsecase) progressView(ctx context.Context, canonical, dashboardID string, job *model.PlaylistJob) *dto.ProgressView {
	view := &dto.ProgressView{
		Status:           job.Status,
		Progress:         job.Progress,
		PollAfterSeconds: progressPollSeconds,
	}
	if model.IsComplete(job.Status) {
		view.Status = model.JobStatusComplete
		view.Progress = 100
		view.DashboardID = dashboardID
		view.RedirectURL = "/d/" + dashboardID
		return view
	}
	if job.LastError != nil {
		view.Error = *job.LastError
	}

	// Elapsed/remaining from started_at and linear extrapolation of the
	// current progress. Progress writes can arrive out of order, so the
	// numbers are advisory.
	if job.StartedAt != nil {
		view.ElapsedSeconds = int64(utils.GetCurrentTime().Sub(*job.StartedAt).Seconds())
		if job.Progress > 0 && job.Progress < 100 {
			rate := float64(view.ElapsedSeconds) / float64(job.Progress)
			view.EstimatedRemaining = int64(rate * float64(100-job.Progress))
		}
	}

	if meta, err := u.Preview(ctx, canonical); err == nil {
		view.Preview = meta
	}
	return view
}

// FullView returns the materialized view for a URL once analysis completed.
func (u *analysisUsecase) FullView(ctx context.Context, rawURL string) (*dto.DashboardView, error) {
	canonical, err := playlist.Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	stats, err := u.stats.GetCachedStats(ctx, canonical, false)
	if err != nil {
		return nil, err
	}
	return u.buildDashboardView(ctx, stats.DashboardID, stats), nil
}

// Dashboard resolves a dashboard id, records a view event (non-fatal) and
// returns the materialized view.
func (u *analysisUsecase) Dashboard(ctx context.Context, dashboardID string) (*dto.DashboardView, error) {
	stats, err := u.stats.GetByDashboardID(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	if err := u.events.RecordEvent(ctx, dashboardID, model.EventTypeView); err != nil {
		logger.GetLogger().WithField("dashboard_id", dashboardID).WithField("error", err).Warn("Recording view event failed")
	}
	return u.buildDashboardView(ctx, dashboardID, stats), nil
}

// RecordEvent appends a share/export interaction for a dashboard.
func (u *analysisUsecase) RecordEvent(ctx context.Context, dashboardID, eventType string) error {
	if !model.ValidEventType(eventType) {
		return fmt.Errorf("unsupported event type: %s", eventType)
	}
	if _, err := u.stats.GetByDashboardID(ctx, dashboardID); err != nil {
		return err
	}
	return u.events.RecordEvent(ctx, dashboardID, eventType)
}

func (u *analysisUsecase) buildDashboardView(ctx context.Context, dashboardID string, stats *model.PlaylistStats) *dto.DashboardView {
	view := &dto.DashboardView{
		DashboardID: dashboardID,
		Stats:       stats,
	}
	counts, err := u.events.GetEventCounts(ctx, dashboardID)
	if err != nil {
		logger.GetLogger().WithField("dashboard_id", dashboardID).WithField("error", err).Warn("Reading event counts failed")
		counts = &model.DashboardEventCounts{}
	}
	view.Interest = counts
	return view
}
