package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/playlist"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/logger"
)

// maxResultsPerRequest is the Data API page and batch ceiling.
const maxResultsPerRequest = 50

var _ repository.IPlaylistBackend = (*APIBackend)(nil)

// APIBackend fetches playlist data through the official Data API v3. Fast
// and reliable, but bounded by the daily quota (playlists.list,
// playlistItems.list and videos.list cost 1 unit each; the default budget is
// 10,000 units). Quota exhaustion surfaces as QuotaExceededError so the
// worker can fall through to the scraper.
type APIBackend struct {
	service *youtubeapi.Service

	mu    sync.Mutex
	stats model.ProcessingStats
}

// NewAPIBackend builds the Data API client in API-key mode (read-only).
func NewAPIBackend(ctx context.Context, apiKey string) (*APIBackend, error) {
	if apiKey == "" {
		return nil, errors.New("youtube api key is required")
	}
	service, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service with API key: %w", err)
	}
	return &APIBackend{service: service}, nil
}

func (b *APIBackend) Name() string { return "api" }

func (b *APIBackend) Stats() model.ProcessingStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Close is a no-op; the API client holds no persistent connections.
func (b *APIBackend) Close() error { return nil }

// EstimateTime assumes roughly half a second per API round trip: two passes
// of 50-video pages plus the initial metadata call.
func (b *APIBackend) EstimateTime(count int, expandAll bool) model.ProcessingEstimate {
	videosToExpand := count
	if !expandAll && count > maxResultsPerRequest {
		videosToExpand = maxResultsPerRequest
	}
	pages := (videosToExpand + maxResultsPerRequest - 1) / maxResultsPerRequest
	totalBatches := pages * 2
	return model.ProcessingEstimate{
		TotalVideos:      count,
		VideosToExpand:   videosToExpand,
		EstimatedSeconds: float64(totalBatches)*0.5 + 1.0,
		BatchCount:       totalBatches,
	}
}

func (b *APIBackend) FetchPreview(ctx context.Context, url string) (*model.PlaylistMetadata, error) {
	playlistID, err := playlist.ExtractListID(url)
	if err != nil {
		return nil, &model.BackendError{Op: "extract playlist id", Err: err}
	}

	resp, err := b.service.Playlists.
		List([]string{"snippet", "contentDetails"}).
		Id(playlistID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyAPIError("playlists.list", err)
	}
	if len(resp.Items) == 0 {
		return nil, &model.BackendError{Op: "playlists.list", Err: fmt.Errorf("playlist not found: %s (private, deleted, or wrong id)", playlistID)}
	}

	item := resp.Items[0]
	meta := &model.PlaylistMetadata{
		Title:       item.Snippet.Title,
		ChannelName: item.Snippet.ChannelTitle,
	}
	if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
		meta.ChannelThumbnail = item.Snippet.Thumbnails.High.Url
	}
	if item.ContentDetails != nil {
		meta.VideoCount = int(item.ContentDetails.ItemCount)
	}
	return meta, nil
}

// FetchVideos runs the three-step API flow: metadata, paginated video ids
// (phase fetching_ids), then batched statistics (phase fetching_stats).
func (b *APIBackend) FetchVideos(ctx context.Context, url string, maxVideos int, onProgress repository.ProgressFunc) ([]model.VideoData, *model.PlaylistMetadata, error) {
	playlistID, err := playlist.ExtractListID(url)
	if err != nil {
		return nil, nil, &model.BackendError{Op: "extract playlist id", Err: err}
	}

	meta, err := b.FetchPreview(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	videoIDs, err := b.fetchAllVideoIDs(ctx, playlistID, maxVideos, meta.VideoCount, onProgress)
	if err != nil {
		return nil, nil, err
	}
	if len(videoIDs) == 0 {
		logger.GetLogger().WithField("playlist_id", playlistID).Warn("No videos found in playlist")
		return nil, meta, nil
	}

	videos, err := b.fetchVideoStatistics(ctx, videoIDs, meta.VideoCount, onProgress)
	if err != nil {
		return nil, nil, err
	}

	logger.GetLogger().
		WithField("playlist_id", playlistID).
		WithField("videos", len(videos)).
		Info("Fetched playlist from YouTube API")
	return videos, meta, nil
}

func (b *APIBackend) fetchAllVideoIDs(ctx context.Context, playlistID string, maxVideos, totalCount int, onProgress repository.ProgressFunc) ([]string, error) {
	var videoIDs []string
	pageToken := ""

	for {
		pageSize := int64(maxResultsPerRequest)
		if maxVideos > 0 {
			remaining := maxVideos - len(videoIDs)
			if remaining <= 0 {
				break
			}
			if remaining < maxResultsPerRequest {
				pageSize = int64(remaining)
			}
		}

		call := b.service.PlaylistItems.
			List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, classifyAPIError("playlistItems.list", err)
		}

		for _, item := range resp.Items {
			if item.ContentDetails != nil {
				videoIDs = append(videoIDs, item.ContentDetails.VideoId)
			}
		}
		if onProgress != nil {
			onProgress(len(videoIDs), totalCount, map[string]any{"phase": "fetching_ids"})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return videoIDs, nil
}

func (b *APIBackend) fetchVideoStatistics(ctx context.Context, videoIDs []string, totalCount int, onProgress repository.ProgressFunc) ([]model.VideoData, error) {
	videos := make([]model.VideoData, 0, len(videoIDs))

	for i := 0; i < len(videoIDs); i += maxResultsPerRequest {
		end := i + maxResultsPerRequest
		if end > len(videoIDs) {
			end = len(videoIDs)
		}
		batch := videoIDs[i:end]

		resp, err := b.service.Videos.
			List([]string{"snippet", "statistics", "contentDetails"}).
			Id(strings.Join(batch, ",")).
			Context(ctx).
			Do()
		if err != nil {
			return nil, classifyAPIError("videos.list", err)
		}

		for idx, item := range resp.Items {
			v := model.VideoData{
				Rank: i + idx + 1,
				ID:   item.Id,
				// The Data API no longer exposes dislikes; they stay 0 here
				// and come from the dislike service on the scraper path.
				Dislikes: 0,
			}
			if item.Snippet != nil {
				v.Title = item.Snippet.Title
				v.Uploader = item.Snippet.ChannelTitle
				if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
					v.Thumbnail = item.Snippet.Thumbnails.High.Url
				}
			}
			if item.Statistics != nil {
				v.Views = int64(item.Statistics.ViewCount)
				v.Likes = int64(item.Statistics.LikeCount)
				v.Comments = int64(item.Statistics.CommentCount)
			}
			if item.ContentDetails != nil {
				v.Duration = parseISODuration(item.ContentDetails.Duration)
			}
			videos = append(videos, v)
		}

		if onProgress != nil {
			onProgress(len(videos), totalCount, map[string]any{"phase": "fetching_stats"})
		}
	}
	return videos, nil
}

// classifyAPIError maps googleapi errors onto the backend taxonomy: a 403
// with reason quotaExceeded is QuotaExceeded, a 429 is RateLimit, anything
// else is terminal.
func classifyAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 403:
			for _, e := range gerr.Errors {
				if e.Reason == "quotaExceeded" {
					return &model.QuotaExceededError{Err: err}
				}
			}
			return &model.BackendError{Op: op, Err: fmt.Errorf("api access forbidden (check the API key): %w", err)}
		case 429:
			return &model.RateLimitError{Err: err}
		}
	}
	return &model.BackendError{Op: op, Err: err}
}
