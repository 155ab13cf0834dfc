package repository

import (
	"context"

	"github.com/navneeth/viralvibes/domain/model"
)

// IPlaylistJob manages the playlist_jobs queue. LeaseNextPending is the only
// coordination primitive between worker processes: the claim must be atomic
// so no job id ever appears in two concurrently leased batches.
type IPlaylistJob interface {
	// EnqueueJob inserts a pending job for the normalized URL and returns its id.
	EnqueueJob(ctx context.Context, playlistURL string) (int64, error)
	// LeaseNextPending atomically claims up to limit pending jobs, marking
	// them processing with started_at set, and returns the claimed rows.
	LeaseNextPending(ctx context.Context, limit int) ([]*model.PlaylistJob, error)
	// UpdateJobProgress writes the progress percentage for a processing job.
	UpdateJobProgress(ctx context.Context, jobID int64, progress int) error
	// MarkJobStatus transitions a job and records the meta fields.
	MarkJobStatus(ctx context.Context, jobID int64, status string, meta model.JobStatusMeta) error
	// GetLatestJob returns the newest job for the URL by created_at, or
	// model.ErrNotFound when none exists.
	GetLatestJob(ctx context.Context, playlistURL string) (*model.PlaylistJob, error)
	// ListPending returns pending jobs oldest first.
	ListPending(ctx context.Context, limit int) ([]*model.PlaylistJob, error)
}

// IPlaylistStats persists materialized analysis results.
type IPlaylistStats interface {
	// UpsertStats inserts the stats row, idempotent on
	// (playlist_url, processed_date), and returns the stored row.
	UpsertStats(ctx context.Context, stats *model.PlaylistStats) (*model.PlaylistStats, error)
	// GetCachedStats returns the stats row for the URL. With checkDate set
	// only a row processed today (UTC) qualifies; otherwise the newest row is
	// returned. model.ErrNotFound when absent.
	GetCachedStats(ctx context.Context, playlistURL string, checkDate bool) (*model.PlaylistStats, error)
	// GetByDashboardID resolves a 16-char dashboard id to its stats row,
	// newest processed_date first. model.ErrNotFound when absent.
	GetByDashboardID(ctx context.Context, dashboardID string) (*model.PlaylistStats, error)
}

// IDashboardEvent records and aggregates dashboard interactions.
type IDashboardEvent interface {
	RecordEvent(ctx context.Context, dashboardID, eventType string) error
	GetEventCounts(ctx context.Context, dashboardID string) (*model.DashboardEventCounts, error)
}

// IPreviewCache memoizes playlist previews between poll cycles so the
// 2-second progress polling does not re-hit a backend.
type IPreviewCache interface {
	GetPreview(ctx context.Context, playlistURL string) (*model.PlaylistMetadata, error)
	SetPreview(ctx context.Context, playlistURL string, meta *model.PlaylistMetadata) error
}
