package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navneeth/viralvibes/domain/model"
)

func fastScraperConfig() ScraperConfig {
	return ScraperConfig{
		BatchSize:     2,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
		MinVideoDelay: time.Millisecond,
		MaxVideoDelay: 2 * time.Millisecond,
		MinBatchDelay: time.Millisecond,
		MaxBatchDelay: 2 * time.Millisecond,
	}
}

func flatJSON(t *testing.T, count int) []byte {
	t.Helper()
	entries := make([]map[string]any, 0, count)
	for i := 1; i <= count; i++ {
		entries = append(entries, map[string]any{
			"id":         fmt.Sprintf("v%d", i),
			"url":        fmt.Sprintf("https://www.youtube.com/watch?v=v%d", i),
			"title":      fmt.Sprintf("skeleton %d", i),
			"view_count": i * 100,
			"duration":   60,
		})
	}
	raw, err := json.Marshal(map[string]any{
		"title":          "Test Playlist",
		"uploader":       "Test Channel",
		"playlist_count": count,
		"thumbnails": []map[string]any{
			{"url": "https://i.ytimg.com/small.jpg", "width": 120},
			{"url": "https://i.ytimg.com/big.jpg", "width": 480},
		},
		"entries": entries,
	})
	require.NoError(t, err)
	return raw
}

func videoJSON(t *testing.T, id string, views, likes, comments int64) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":            id,
		"title":         "expanded " + id,
		"view_count":    views,
		"like_count":    likes,
		"comment_count": comments,
		"duration":      120,
		"uploader":      "Test Channel",
		"thumbnail":     "https://i.ytimg.com/" + id + ".jpg",
	})
	require.NoError(t, err)
	return raw
}

// stubRunner routes flat and per-video dumps and records user agents seen.
type stubRunner struct {
	mu         sync.Mutex
	flat       []byte
	flatErr    error
	perVideo   func(target string) ([]byte, error)
	userAgents []string
}

func (s *stubRunner) run(ctx context.Context, userAgent string, flat bool, target string) ([]byte, error) {
	s.mu.Lock()
	s.userAgents = append(s.userAgents, userAgent)
	s.mu.Unlock()
	if flat {
		return s.flat, s.flatErr
	}
	return s.perVideo(target)
}

func TestScraperFetchPreview(t *testing.T) {
	stub := &stubRunner{flat: flatJSON(t, 3)}
	backend := NewScraperBackend(fastScraperConfig(), nil)
	backend.run = stub.run

	meta, err := backend.FetchPreview(context.Background(), "https://www.youtube.com/playlist?list=pl_x")
	require.NoError(t, err)
	assert.Equal(t, "Test Playlist", meta.Title)
	assert.Equal(t, "Test Channel", meta.ChannelName)
	assert.Equal(t, 3, meta.VideoCount)
	// The widest thumbnail wins.
	assert.Equal(t, "https://i.ytimg.com/big.jpg", meta.ChannelThumbnail)
}

func TestScraperFetchVideos_MergesAndOrders(t *testing.T) {
	stub := &stubRunner{flat: flatJSON(t, 4)}
	stub.perVideo = func(target string) ([]byte, error) {
		// v1..v4 resolve fine with distinct stats.
		switch {
		case contains(target, "v1"):
			return videoJSON(t, "v1", 1000, 10, 1), nil
		case contains(target, "v2"):
			return videoJSON(t, "v2", 2000, 20, 2), nil
		case contains(target, "v3"):
			return videoJSON(t, "v3", 3000, 30, 3), nil
		default:
			return videoJSON(t, "v4", 4000, 40, 4), nil
		}
	}

	backend := NewScraperBackend(fastScraperConfig(), nil)
	backend.run = stub.run

	videos, meta, err := backend.FetchVideos(context.Background(), "https://www.youtube.com/playlist?list=pl_x", 0, nil)
	require.NoError(t, err)
	require.Len(t, videos, 4)
	assert.Equal(t, 4, meta.VideoCount)

	for i, v := range videos {
		assert.Equal(t, i+1, v.Rank, "rows are ranked by playlist position")
		assert.Equal(t, fmt.Sprintf("v%d", i+1), v.ID)
		assert.Equal(t, fmt.Sprintf("expanded v%d", i+1), v.Title)
		assert.Equal(t, int64((i+1)*1000), v.Views)
	}
}

func TestScraperFetchVideos_SkeletonFallback(t *testing.T) {
	stub := &stubRunner{flat: flatJSON(t, 3)}
	stub.perVideo = func(target string) ([]byte, error) {
		if contains(target, "v2") {
			return nil, errString("yt-dlp: connection reset by peer")
		}
		for _, id := range []string{"v1", "v3"} {
			if contains(target, id) {
				return videoJSON(t, id, 9999, 99, 9), nil
			}
		}
		return nil, errString("unexpected target " + target)
	}

	backend := NewScraperBackend(fastScraperConfig(), nil)
	backend.run = stub.run

	videos, _, err := backend.FetchVideos(context.Background(), "https://www.youtube.com/playlist?list=pl_x", 0, nil)
	require.NoError(t, err)
	require.Len(t, videos, 3, "failed row is kept, not dropped")

	// v2 kept its skeleton values: flat title and views, zero engagement.
	v2 := videos[1]
	assert.Equal(t, "v2", v2.ID)
	assert.Equal(t, "skeleton 2", v2.Title)
	assert.Equal(t, int64(200), v2.Views)
	assert.Zero(t, v2.Likes)
	assert.Zero(t, v2.Dislikes)
	assert.Zero(t, v2.Comments)

	stats := backend.Stats()
	assert.Equal(t, 1, stats.FailedVideos)
	assert.Equal(t, []string{"v2"}, backend.FailedVideos())
	// One retry happened before giving up on v2.
	assert.Equal(t, 1, stats.TotalRetries)
}

func TestScraperFetchVideos_BotChallengePropagates(t *testing.T) {
	stub := &stubRunner{flat: flatJSON(t, 2)}
	stub.perVideo = func(target string) ([]byte, error) {
		return nil, errString("ERROR: Sign in to confirm you're not a bot")
	}

	backend := NewScraperBackend(fastScraperConfig(), nil)
	backend.run = stub.run

	_, _, err := backend.FetchVideos(context.Background(), "https://www.youtube.com/playlist?list=pl_x", 0, nil)
	require.Error(t, err)
	assert.True(t, model.IsBotChallenge(err))
	assert.GreaterOrEqual(t, backend.Stats().BotChallenges, 1)
}

func TestScraperFetchVideos_ProgressAndMaxVideos(t *testing.T) {
	stub := &stubRunner{flat: flatJSON(t, 5)}
	stub.perVideo = func(target string) ([]byte, error) {
		return videoJSON(t, "vx", 1, 1, 1), nil
	}

	backend := NewScraperBackend(fastScraperConfig(), nil)
	backend.run = stub.run

	var mu sync.Mutex
	var updates [][2]int
	onProgress := func(processed, total int, meta map[string]any) {
		mu.Lock()
		updates = append(updates, [2]int{processed, total})
		mu.Unlock()
	}

	videos, _, err := backend.FetchVideos(context.Background(), "https://www.youtube.com/playlist?list=pl_x", 3, onProgress)
	require.NoError(t, err)
	assert.Len(t, videos, 3, "maxVideos caps expansion")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, 3, last[0])
	assert.Equal(t, 5, last[1], "total reflects the full playlist size")
}

func TestScraperFetchVideos_EmptyPlaylist(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"title":          "Empty",
		"uploader":       "Nobody",
		"playlist_count": 0,
		"entries":        []any{},
	})
	require.NoError(t, err)
	stub := &stubRunner{flat: raw}

	backend := NewScraperBackend(fastScraperConfig(), nil)
	backend.run = stub.run

	videos, meta, err := backend.FetchVideos(context.Background(), "https://www.youtube.com/playlist?list=pl_x", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Equal(t, 0, meta.VideoCount)
}

func TestScraperEstimateTime(t *testing.T) {
	backend := NewScraperBackend(fastScraperConfig(), nil)
	estimate := backend.EstimateTime(10, true)
	assert.Equal(t, 10, estimate.TotalVideos)
	assert.Equal(t, 10, estimate.VideosToExpand)
	assert.Equal(t, 5, estimate.BatchCount)
	assert.Greater(t, estimate.EstimatedSeconds, 0.0)
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
