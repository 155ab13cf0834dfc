package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

var _ repository.IPlaylistStats = (*PlaylistStatsRepository)(nil)

// PlaylistStatsRepository persists materialized analysis results. The
// per-video dataset travels as a schema-versioned JSON envelope in df_json so
// readers can evolve independently of writers.
type PlaylistStatsRepository struct {
	db *sql.DB
}

func NewPlaylistStatsRepository(db *sql.DB) *PlaylistStatsRepository {
	return &PlaylistStatsRepository{db: db}
}

const statsColumns = `playlist_url, dashboard_id, processed_date, title, channel_name, channel_thumbnail,
	view_count, like_count, dislike_count, comment_count, video_count, processed_video_count,
	avg_duration, engagement_rate, controversy_score, summary_stats, df_json, created_at`

func scanStats(scanner interface{ Scan(...any) error }) (*model.PlaylistStats, error) {
	s := &model.PlaylistStats{}
	var summaryRaw, datasetRaw []byte
	var processedDate time.Time
	if err := scanner.Scan(
		&s.PlaylistURL, &s.DashboardID, &processedDate, &s.Title, &s.ChannelName, &s.ChannelThumbnail,
		&s.ViewCount, &s.LikeCount, &s.DislikeCount, &s.CommentCount, &s.VideoCount, &s.ProcessedVideoCount,
		&s.AvgDurationSeconds, &s.EngagementRate, &s.ControversyScore, &summaryRaw, &datasetRaw, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.ProcessedDate = processedDate.Format("2006-01-02")
	if len(summaryRaw) > 0 {
		if err := json.Unmarshal(summaryRaw, &s.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary_stats: %w", err)
		}
	}
	if len(datasetRaw) > 0 {
		if err := json.Unmarshal(datasetRaw, &s.Dataset); err != nil {
			return nil, fmt.Errorf("decoding df_json: %w", err)
		}
	}
	return s, nil
}

// UpsertStats inserts the stats row, idempotent on (playlist_url,
// processed_date). Re-running the same analysis for the same date leaves a
// single row; the stored row is returned either way.
func (r *PlaylistStatsRepository) UpsertStats(ctx context.Context, stats *model.PlaylistStats) (*model.PlaylistStats, error) {
	if stats.Dataset.SchemaVersion == 0 {
		stats.Dataset.SchemaVersion = model.VideoDatasetSchemaVersion
	}
	summaryRaw, err := json.Marshal(stats.Summary)
	if err != nil {
		return nil, fmt.Errorf("encoding summary_stats: %w", err)
	}
	datasetRaw, err := json.Marshal(stats.Dataset)
	if err != nil {
		return nil, fmt.Errorf("encoding df_json: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO playlist_stats (`+statsColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		 ON CONFLICT (playlist_url, processed_date) DO UPDATE SET
			dashboard_id = EXCLUDED.dashboard_id,
			title = EXCLUDED.title,
			channel_name = EXCLUDED.channel_name,
			channel_thumbnail = EXCLUDED.channel_thumbnail,
			view_count = EXCLUDED.view_count,
			like_count = EXCLUDED.like_count,
			dislike_count = EXCLUDED.dislike_count,
			comment_count = EXCLUDED.comment_count,
			video_count = EXCLUDED.video_count,
			processed_video_count = EXCLUDED.processed_video_count,
			avg_duration = EXCLUDED.avg_duration,
			engagement_rate = EXCLUDED.engagement_rate,
			controversy_score = EXCLUDED.controversy_score,
			summary_stats = EXCLUDED.summary_stats,
			df_json = EXCLUDED.df_json
		 RETURNING `+statsColumns,
		stats.PlaylistURL, stats.DashboardID, stats.ProcessedDate, stats.Title, stats.ChannelName,
		stats.ChannelThumbnail, stats.ViewCount, stats.LikeCount, stats.DislikeCount, stats.CommentCount,
		stats.VideoCount, stats.ProcessedVideoCount, stats.AvgDurationSeconds, stats.EngagementRate,
		stats.ControversyScore, summaryRaw, datasetRaw, utils.GetCurrentTime())

	return scanStats(row)
}

// GetCachedStats returns the stats row for the URL. With checkDate set only a
// row processed today (UTC) qualifies as a cache hit.
func (r *PlaylistStatsRepository) GetCachedStats(ctx context.Context, playlistURL string, checkDate bool) (*model.PlaylistStats, error) {
	var row *sql.Row
	if checkDate {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+statsColumns+` FROM playlist_stats
			 WHERE playlist_url=$1 AND processed_date=$2 LIMIT 1`,
			playlistURL, utils.Today())
	} else {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+statsColumns+` FROM playlist_stats
			 WHERE playlist_url=$1 ORDER BY processed_date DESC LIMIT 1`,
			playlistURL)
	}
	s, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByDashboardID resolves a dashboard id to its newest stats row.
func (r *PlaylistStatsRepository) GetByDashboardID(ctx context.Context, dashboardID string) (*model.PlaylistStats, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM playlist_stats
		 WHERE dashboard_id=$1 ORDER BY processed_date DESC LIMIT 1`,
		dashboardID)
	s, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
