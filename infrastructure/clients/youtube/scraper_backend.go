package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/clients/dislikes"
	"github.com/navneeth/viralvibes/infrastructure/logger"
)

var _ repository.IPlaylistBackend = (*ScraperBackend)(nil)

// ScraperConfig tunes the yt-dlp backend's throttling and retry policy.
type ScraperConfig struct {
	CookiesFile   string
	BatchSize     int
	MaxRetries    int
	RetryDelay    time.Duration
	MinVideoDelay time.Duration
	MaxVideoDelay time.Duration
	MinBatchDelay time.Duration
	MaxBatchDelay time.Duration
}

func (c *ScraperConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.MinVideoDelay <= 0 {
		c.MinVideoDelay = 500 * time.Millisecond
	}
	if c.MaxVideoDelay <= c.MinVideoDelay {
		c.MaxVideoDelay = c.MinVideoDelay + time.Second
	}
	if c.MinBatchDelay <= 0 {
		c.MinBatchDelay = 2 * time.Second
	}
	if c.MaxBatchDelay <= c.MinBatchDelay {
		c.MaxBatchDelay = c.MinBatchDelay + 2*time.Second
	}
}

// ScraperBackend fetches playlist data with yt-dlp, without touching the API
// quota. Slower than the API and exposed to bot detection, so every
// per-video call is jittered and retried, and bot challenges back off
// exponentially with a fresh user agent from the pool on each retry. A
// failed detail fetch keeps the flat-extraction skeleton row instead of
// dropping the video.
type ScraperBackend struct {
	cfg      ScraperConfig
	run      ytDlpRunner
	dislikes *dislikes.Client

	mu           sync.Mutex
	stats        model.ProcessingStats
	failedVideos []string
}

// NewScraperBackend builds the yt-dlp backend. dislikeClient may be nil to
// skip vote enrichment.
func NewScraperBackend(cfg ScraperConfig, dislikeClient *dislikes.Client) *ScraperBackend {
	cfg.applyDefaults()
	return &ScraperBackend{
		cfg:      cfg,
		run:      runYtDlp(cfg.CookiesFile),
		dislikes: dislikeClient,
	}
}

func (b *ScraperBackend) Name() string { return "scraper" }

func (b *ScraperBackend) Stats() model.ProcessingStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// FailedVideos returns the ids whose detail expansion was abandoned.
func (b *ScraperBackend) FailedVideos() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.failedVideos))
	copy(out, b.failedVideos)
	return out
}

func (b *ScraperBackend) Close() error {
	if b.dislikes != nil {
		b.dislikes.Close()
	}
	return nil
}

// EstimateTime mirrors the scraper's pacing: per-video delays dominate, plus
// batch delays and a 20% retry buffer.
func (b *ScraperBackend) EstimateTime(count int, expandAll bool) model.ProcessingEstimate {
	videosToExpand := count
	if !expandAll && count > 20 {
		videosToExpand = 20
	}
	avgVideoDelay := (b.cfg.MinVideoDelay + b.cfg.MaxVideoDelay).Seconds() / 2
	avgBatchDelay := (b.cfg.MinBatchDelay + b.cfg.MaxBatchDelay).Seconds() / 2
	batchCount := (videosToExpand + b.cfg.BatchSize - 1) / b.cfg.BatchSize

	perBatch := avgVideoDelay*float64(b.cfg.BatchSize) + avgBatchDelay
	total := (2.0 + perBatch*float64(batchCount)) * 1.2

	return model.ProcessingEstimate{
		TotalVideos:      count,
		VideosToExpand:   videosToExpand,
		EstimatedSeconds: total,
		BatchCount:       batchCount,
	}
}

func (b *ScraperBackend) fetchFlatPlaylist(ctx context.Context, url string) (*ytDlpPlaylist, error) {
	raw, err := b.run(ctx, randomUserAgent(), true, url)
	if err != nil {
		return nil, err
	}
	info := &ytDlpPlaylist{}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("decoding playlist dump: %w", err)
	}
	return info, nil
}

func (b *ScraperBackend) FetchPreview(ctx context.Context, url string) (*model.PlaylistMetadata, error) {
	info, err := b.fetchFlatPlaylist(ctx, url)
	if err != nil {
		return nil, &model.BackendError{Op: "flat playlist extraction", Err: err}
	}
	return b.metadataFrom(info), nil
}

func (b *ScraperBackend) metadataFrom(info *ytDlpPlaylist) *model.PlaylistMetadata {
	count := int(info.PlaylistCount)
	if count == 0 {
		count = len(info.Entries)
	}
	title := info.Title
	if title == "" {
		title = "Untitled Playlist"
	}
	channel := info.Uploader
	if channel == "" {
		channel = "Unknown Channel"
	}
	return &model.PlaylistMetadata{
		Title:            title,
		ChannelName:      channel,
		ChannelThumbnail: info.bestThumbnail(),
		VideoCount:       count,
	}
}

// FetchVideos runs the scraper pipeline: flat skeleton, then batched detail
// expansion with concurrent dislike enrichment. Rows come back ordered by
// playlist rank regardless of fetch completion order.
func (b *ScraperBackend) FetchVideos(ctx context.Context, url string, maxVideos int, onProgress repository.ProgressFunc) ([]model.VideoData, *model.PlaylistMetadata, error) {
	info, err := b.fetchFlatPlaylist(ctx, url)
	// Bot challenges on the flat extraction back off exponentially; each
	// retry picks a fresh user agent inside fetchFlatPlaylist.
	for attempt := 0; err != nil && isBotChallenge(err) && attempt < b.cfg.MaxRetries; attempt++ {
		b.bumpBotChallenges()
		if sleepErr := sleepCtx(ctx, b.cfg.RetryDelay*(1<<attempt)); sleepErr != nil {
			return nil, nil, sleepErr
		}
		info, err = b.fetchFlatPlaylist(ctx, url)
	}
	if err != nil {
		if isBotChallenge(err) {
			b.bumpBotChallenges()
			return nil, nil, &model.BotChallengeError{Attempts: b.cfg.MaxRetries, Err: err}
		}
		return nil, nil, &model.BackendError{Op: "flat playlist extraction", Err: err}
	}
	meta := b.metadataFrom(info)

	entries := info.Entries
	if len(entries) == 0 {
		logger.GetLogger().WithField("url", url).Warn("No entries found in playlist")
		return nil, meta, nil
	}
	if maxVideos > 0 && len(entries) > maxVideos {
		entries = entries[:maxVideos]
	}

	estimate := b.EstimateTime(meta.VideoCount, maxVideos <= 0)
	logger.GetLogger().
		WithField("videos", len(entries)).
		WithField("playlist_count", meta.VideoCount).
		WithField("eta", estimate.String()).
		WithField("batches", estimate.BatchCount).
		Info("Expanding playlist videos")

	videos, err := b.expandEntries(ctx, entries, meta, onProgress)
	if err != nil {
		return nil, nil, err
	}

	logger.GetLogger().
		WithField("processed", len(videos)).
		WithField("stats", b.Stats()).
		Info("Playlist expansion finished")
	return videos, meta, nil
}

// expandEntries walks the skeleton in batches of BatchSize. Within a batch
// every video's detail fetch and dislike lookup run concurrently; the final
// row coalesces expanded values over skeleton values column by column.
func (b *ScraperBackend) expandEntries(ctx context.Context, entries []ytDlpEntry, meta *model.PlaylistMetadata, onProgress repository.ProgressFunc) ([]model.VideoData, error) {
	videos := make([]model.VideoData, len(entries))
	startTime := time.Now()
	totalBatches := (len(entries) + b.cfg.BatchSize - 1) / b.cfg.BatchSize

	for start := 0; start < len(entries); start += b.cfg.BatchSize {
		end := start + b.cfg.BatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batchNum := start/b.cfg.BatchSize + 1

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			rank := i + 1
			entry := entries[i]
			g.Go(func() error {
				row, err := b.expandOne(gctx, entry, rank, meta.ChannelName)
				if err != nil {
					return err
				}
				videos[rank-1] = row
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Only bot challenges and cancellation abort the playlist;
			// per-video failures were already folded into skeleton rows.
			return nil, err
		}

		if onProgress != nil {
			processed := end
			elapsed := time.Since(startTime).Seconds()
			remaining := 0.0
			if processed > 0 {
				remaining = elapsed/float64(processed)*float64(len(entries)) - elapsed
			}
			onProgress(processed, meta.VideoCount, map[string]any{
				"elapsed":       elapsed,
				"remaining":     remaining,
				"batch":         batchNum,
				"total_batches": totalBatches,
			})
		}

		if end < len(entries) {
			if err := sleepJitter(ctx, b.cfg.MinBatchDelay, b.cfg.MaxBatchDelay); err != nil {
				return nil, err
			}
		}
	}
	return videos, nil
}

// expandOne produces the final row for one skeleton entry. A detail fetch
// that fails terminally leaves the skeleton values in place.
func (b *ScraperBackend) expandOne(ctx context.Context, entry ytDlpEntry, rank int, defaultUploader string) (model.VideoData, error) {
	row := model.VideoData{
		Rank:     rank,
		ID:       entry.ID,
		Title:    entry.Title,
		Views:    int64(entry.ViewCount),
		Duration: int64(entry.Duration),
		Uploader: entry.Uploader,
	}
	if row.Uploader == "" {
		row.Uploader = defaultUploader
	}

	// Dislike enrichment runs concurrently with the detail fetch.
	var votes dislikes.Votes
	var votesErr error
	var wg sync.WaitGroup
	if b.dislikes != nil && entry.ID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			votes, votesErr = b.dislikes.FetchVotes(ctx, entry.ID)
		}()
	}

	info, err := b.fetchVideoInfo(ctx, entry)
	wg.Wait()

	if err != nil {
		if model.IsBotChallenge(err) || ctx.Err() != nil {
			return row, err
		}
		// Terminal per-video failure: keep the skeleton row.
		b.recordFailedVideo(entry.ID)
		logger.GetLogger().
			WithField("video_id", entry.ID).
			WithField("error", err).
			Warn("Video detail fetch failed, keeping skeleton row")
		return row, nil
	}

	if info.Title != "" {
		row.Title = info.Title
	}
	if info.ViewCount > 0 {
		row.Views = int64(info.ViewCount)
	}
	row.Likes = int64(info.LikeCount)
	row.Comments = int64(info.CommentCount)
	if info.Duration > 0 {
		row.Duration = int64(info.Duration)
	}
	if info.Uploader != "" {
		row.Uploader = info.Uploader
	}
	if info.Thumbnail != "" {
		row.Thumbnail = info.Thumbnail
	}

	if votesErr != nil {
		if model.IsRateLimit(votesErr) {
			b.bumpRateLimits()
		}
		logger.GetLogger().
			WithField("video_id", entry.ID).
			WithField("error", votesErr).
			Warn("Dislike enrichment failed")
	} else if b.dislikes != nil {
		row.Dislikes = votes.Dislikes
		if votes.Likes > 0 {
			row.Likes = votes.Likes
		}
		row.Rating = votes.Rating
	}

	return row, nil
}

// fetchVideoInfo dumps one video's JSON with retry, jittered pacing, UA
// rotation on bot challenges and exponential backoff.
func (b *ScraperBackend) fetchVideoInfo(ctx context.Context, entry ytDlpEntry) (*ytDlpVideo, error) {
	target := entry.URL
	if target == "" {
		target = "https://www.youtube.com/watch?v=" + entry.ID
	}

	userAgent := randomUserAgent()
	for attempt := 0; ; attempt++ {
		if err := sleepJitter(ctx, b.cfg.MinVideoDelay, b.cfg.MaxVideoDelay); err != nil {
			return nil, err
		}

		raw, err := b.run(ctx, userAgent, false, target)
		if err == nil {
			info := &ytDlpVideo{}
			if jsonErr := json.Unmarshal(raw, info); jsonErr != nil {
				return nil, fmt.Errorf("decoding video dump for %s: %w", entry.ID, jsonErr)
			}
			return info, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if isBotChallenge(err) {
			b.bumpBotChallenges()
			if attempt >= b.cfg.MaxRetries {
				logger.GetLogger().
					WithField("video_id", entry.ID).
					WithField("retries", b.cfg.MaxRetries).
					Error("Bot challenge persists, giving up")
				return nil, &model.BotChallengeError{Attempts: attempt, Err: err}
			}
			wait := b.cfg.RetryDelay * (1 << attempt)
			logger.GetLogger().
				WithField("video_id", entry.ID).
				WithField("wait", wait.String()).
				WithField("attempt", attempt+1).
				Warn("Bot challenge, backing off and rotating user agent")
			if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
				return nil, sleepErr
			}
			userAgent = randomUserAgent()
			continue
		}

		if attempt >= b.cfg.MaxRetries {
			return nil, &model.VideoFetchError{VideoID: entry.ID, Err: err}
		}
		b.bumpRetries()
		logger.GetLogger().
			WithField("video_id", entry.ID).
			WithField("attempt", attempt+1).
			WithField("error", err).
			Warn("Video fetch failed, retrying")
		if sleepErr := sleepCtx(ctx, b.cfg.RetryDelay); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func (b *ScraperBackend) recordFailedVideo(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.FailedVideos++
	if id == "" {
		id = "unknown"
	}
	b.failedVideos = append(b.failedVideos, id)
}

func (b *ScraperBackend) bumpBotChallenges() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.BotChallenges++
}

func (b *ScraperBackend) bumpRateLimits() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.RateLimits++
}

func (b *ScraperBackend) bumpRetries() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.TotalRetries++
}

func sleepJitter(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
