package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/playlist"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/logger"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

// maxStoredErrorLen bounds last_error on failed jobs.
const maxStoredErrorLen = 2000

// WorkerConfig tunes the job loop.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRuntime   time.Duration
}

func (c *WorkerConfig) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.MaxRuntime <= 0 {
		c.MaxRuntime = 5 * time.Minute
	}
}

// JobWorker drains the playlist_jobs queue. It is the only translator from
// backend error kinds to job states: bot challenges become blocked, quota
// exhaustion falls through to the scraper when one is configured, everything
// else fails the job. In-flight jobs are left processing on shutdown; an
// operator reset re-leases them.
type JobWorker struct {
	jobs     repository.IPlaylistJob
	stats    repository.IPlaylistStats
	primary  repository.IPlaylistBackend
	fallback repository.IPlaylistBackend // optional; used on quota exhaustion
	cfg      WorkerConfig
}

func NewJobWorker(jobs repository.IPlaylistJob, stats repository.IPlaylistStats, primary, fallback repository.IPlaylistBackend, cfg WorkerConfig) *JobWorker {
	cfg.applyDefaults()
	return &JobWorker{
		jobs:     jobs,
		stats:    stats,
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
	}
}

// Run polls the queue until the wall-clock budget is spent or ctx is
// cancelled, and returns the number of jobs processed. The loop exits within
// MaxRuntime plus at most one in-flight batch.
func (w *JobWorker) Run(ctx context.Context) (int, error) {
	deadline := time.Now().Add(w.cfg.MaxRuntime)
	processed := 0

	logger.GetLogger().
		WithField("poll_interval", w.cfg.PollInterval.String()).
		WithField("batch_size", w.cfg.BatchSize).
		WithField("max_runtime", w.cfg.MaxRuntime.String()).
		WithField("backend", w.primary.Name()).
		Info("Worker loop starting")

	for {
		if ctx.Err() != nil {
			logger.GetLogger().Info("Worker loop stopping: shutdown signal")
			return processed, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.GetLogger().WithField("jobs_processed", processed).Info("Worker loop stopping: runtime budget spent")
			return processed, nil
		}

		jobs, err := w.jobs.LeaseNextPending(ctx, w.cfg.BatchSize)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Leasing pending jobs failed")
		}

		if len(jobs) > 0 {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(w.cfg.BatchSize)
			for _, job := range jobs {
				g.Go(func() error {
					w.ProcessOne(gctx, job)
					return nil
				})
			}
			_ = g.Wait()
			processed += len(jobs)
			continue
		}

		sleep := w.cfg.PollInterval
		if sleep > remaining {
			sleep = remaining
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
		}
	}
}

// ProcessOne drives a single leased job to a terminal state.
func (w *JobWorker) ProcessOne(ctx context.Context, job *model.PlaylistJob) {
	lg := logger.GetLogger().WithField("job_id", job.ID).WithField("url", job.PlaylistURL)
	lg.Info("Processing playlist job")

	dashboardID := playlist.Fingerprint(job.PlaylistURL)
	reporter := NewProgressReporter(w.jobs, job.ID)

	videos, meta, err := w.fetchWithFallback(ctx, job, reporter)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-job: leave the row processing for an operator reset.
			lg.Warn("Job interrupted by shutdown; leaving processing")
			return
		}
		w.markTerminal(ctx, job.ID, err)
		return
	}

	rows, summary := Enrich(videos, metaVideoCount(meta, len(videos)))
	stats := BuildStats(job.PlaylistURL, dashboardID, meta, rows, summary)

	if _, err := w.upsertWithRetry(ctx, stats); err != nil {
		lg.WithField("error", err).Error("Persisting playlist stats failed")
		w.markFailed(ctx, job.ID, fmt.Errorf("storing stats: %w", err))
		return
	}

	if err := w.jobs.MarkJobStatus(ctx, job.ID, model.JobStatusComplete, model.JobStatusMeta{}); err != nil {
		// One retry; the stats row is already durable and the upsert is
		// idempotent, so a resubmission would simply rewrite it.
		if err = w.jobs.MarkJobStatus(ctx, job.ID, model.JobStatusComplete, model.JobStatusMeta{}); err != nil {
			lg.WithField("error", err).Error("Marking job complete failed")
			return
		}
	}
	lg.WithField("videos", summary.ProcessedVideoCount).WithField("dashboard_id", dashboardID).Info("Playlist job complete")
}

// fetchWithFallback runs the primary backend and, on quota exhaustion, the
// configured fallback within the same job.
func (w *JobWorker) fetchWithFallback(ctx context.Context, job *model.PlaylistJob, reporter *ProgressReporter) ([]model.VideoData, *model.PlaylistMetadata, error) {
	w.logEstimate(ctx, w.primary, job)

	videos, meta, err := w.primary.FetchVideos(ctx, job.PlaylistURL, 0, reporter.Func(ctx))
	if err == nil {
		return videos, meta, nil
	}
	if !model.IsQuotaExceeded(err) || w.fallback == nil {
		return nil, nil, err
	}

	logger.GetLogger().
		WithField("job_id", job.ID).
		WithField("fallback", w.fallback.Name()).
		Warn("API quota exceeded, falling through to scraper")
	return w.fallback.FetchVideos(ctx, job.PlaylistURL, 0, reporter.Func(ctx))
}

func (w *JobWorker) logEstimate(ctx context.Context, backend repository.IPlaylistBackend, job *model.PlaylistJob) {
	meta, err := backend.FetchPreview(ctx, job.PlaylistURL)
	if err != nil {
		return
	}
	estimate := backend.EstimateTime(meta.VideoCount, true)
	logger.GetLogger().
		WithField("job_id", job.ID).
		WithField("videos", meta.VideoCount).
		WithField("eta", estimate.String()).
		Info("Processing estimate")
}

func (w *JobWorker) upsertWithRetry(ctx context.Context, stats *model.PlaylistStats) (*model.PlaylistStats, error) {
	stored, err := w.stats.UpsertStats(ctx, stats)
	if err == nil {
		return stored, nil
	}
	logger.GetLogger().WithField("error", err).Warn("Stats upsert failed, retrying once")
	return w.stats.UpsertStats(ctx, stats)
}

// markTerminal maps a fetch error onto the terminal job state: blocked for
// bot challenges, failed for everything else.
func (w *JobWorker) markTerminal(ctx context.Context, jobID int64, err error) {
	if model.IsBotChallenge(err) {
		msg := utils.Truncate(err.Error(), maxStoredErrorLen)
		if markErr := w.jobs.MarkJobStatus(ctx, jobID, model.JobStatusBlocked, model.JobStatusMeta{Error: &msg}); markErr != nil {
			logger.GetLogger().WithField("job_id", jobID).WithField("error", markErr).Error("Marking job blocked failed")
		}
		return
	}
	w.markFailed(ctx, jobID, err)
}

func (w *JobWorker) markFailed(ctx context.Context, jobID int64, err error) {
	msg := utils.Truncate(err.Error(), maxStoredErrorLen)
	if markErr := w.jobs.MarkJobStatus(ctx, jobID, model.JobStatusFailed, model.JobStatusMeta{Error: &msg}); markErr != nil {
		if markErr = w.jobs.MarkJobStatus(ctx, jobID, model.JobStatusFailed, model.JobStatusMeta{Error: &msg}); markErr != nil {
			logger.GetLogger().WithField("job_id", jobID).WithField("error", markErr).Error("Marking job failed failed")
		}
	}
}

func metaVideoCount(meta *model.PlaylistMetadata, fallback int) int {
	if meta != nil && meta.VideoCount > 0 {
		return meta.VideoCount
	}
	return fallback
}
