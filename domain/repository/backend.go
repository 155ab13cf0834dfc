package repository

import (
	"context"

	"github.com/navneeth/viralvibes/domain/model"
)

// ProgressFunc receives streaming fetch progress. meta may carry
// backend-specific fields such as the current phase or batch number.
type ProgressFunc func(processed, total int, meta map[string]any)

// IPlaylistBackend is the uniform fetch contract over the two data sources:
// the official Data API and the yt-dlp scraper. Implementations surface the
// error taxonomy in domain/model; policy (retry at the job level, fallback,
// terminal states) belongs to the worker.
type IPlaylistBackend interface {
	// Name identifies the backend in logs and config ("api" or "scraper").
	Name() string
	// FetchPreview returns playlist metadata without any per-video calls.
	FetchPreview(ctx context.Context, url string) (*model.PlaylistMetadata, error)
	// FetchVideos returns the full per-video dataset and metadata.
	// maxVideos <= 0 means all. onProgress may be nil.
	FetchVideos(ctx context.Context, url string, maxVideos int, onProgress ProgressFunc) ([]model.VideoData, *model.PlaylistMetadata, error)
	// EstimateTime returns an advisory processing estimate.
	EstimateTime(count int, expandAll bool) model.ProcessingEstimate
	// Stats returns a snapshot of the resilience counters.
	Stats() model.ProcessingStats
	// Close releases connections held by the backend.
	Close() error
}
