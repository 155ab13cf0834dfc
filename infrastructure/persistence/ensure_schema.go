package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureAnalysisSchema creates the analysis tables when missing. Safe to call
// at startup from both the web server and the worker.
func EnsureAnalysisSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS playlist_jobs (
			id BIGSERIAL PRIMARY KEY,
			playlist_url TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			progress INT NOT NULL DEFAULT 0,
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_jobs_url_created
			ON playlist_jobs (playlist_url, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_jobs_pending
			ON playlist_jobs (created_at) WHERE status = 'pending'`,
		// At most one non-terminal job per normalized URL; racing submits hit
		// this index and observe the surviving job instead.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_playlist_jobs_active
			ON playlist_jobs (playlist_url) WHERE status IN ('pending','processing')`,
		`CREATE TABLE IF NOT EXISTS playlist_stats (
			playlist_url TEXT NOT NULL,
			dashboard_id TEXT NOT NULL,
			processed_date DATE NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			channel_name TEXT NOT NULL DEFAULT '',
			channel_thumbnail TEXT NOT NULL DEFAULT '',
			view_count BIGINT NOT NULL DEFAULT 0,
			like_count BIGINT NOT NULL DEFAULT 0,
			dislike_count BIGINT NOT NULL DEFAULT 0,
			comment_count BIGINT NOT NULL DEFAULT 0,
			video_count INT NOT NULL DEFAULT 0,
			processed_video_count INT NOT NULL DEFAULT 0,
			avg_duration BIGINT NOT NULL DEFAULT 0,
			engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			controversy_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			summary_stats JSONB,
			df_json JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (playlist_url, processed_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_stats_dashboard
			ON playlist_stats (dashboard_id, processed_date DESC)`,
		`CREATE TABLE IF NOT EXISTS dashboard_events (
			id BIGSERIAL PRIMARY KEY,
			dashboard_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dashboard_events_id
			ON dashboard_events (dashboard_id, event_type)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring analysis schema: %w", err)
		}
	}
	return nil
}
