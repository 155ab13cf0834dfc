package model

import "fmt"

// PlaylistMetadata is the lightweight preview of a playlist, identical across
// backends.
type PlaylistMetadata struct {
	Title            string `json:"title"`
	ChannelName      string `json:"channel_name"`
	ChannelThumbnail string `json:"channel_thumbnail"`
	VideoCount       int    `json:"video_count"`
}

// VideoData is the raw per-video record a backend delivers before enrichment.
type VideoData struct {
	Rank      int
	ID        string
	Title     string
	Views     int64
	Likes     int64
	Dislikes  int64
	Comments  int64
	Duration  int64 // seconds
	Uploader  string
	Thumbnail string
	Rating    *float64
}

// ProcessingEstimate is an advisory timing estimate for a fetch.
type ProcessingEstimate struct {
	TotalVideos      int
	VideosToExpand   int
	EstimatedSeconds float64
	BatchCount       int
}

// EstimatedMinutes returns the estimate expressed in minutes.
func (e ProcessingEstimate) EstimatedMinutes() float64 {
	return e.EstimatedSeconds / 60
}

func (e ProcessingEstimate) String() string {
	minutes := e.EstimatedMinutes()
	switch {
	case minutes < 1:
		return fmt.Sprintf("~%d seconds", int(e.EstimatedSeconds))
	case minutes < 60:
		return fmt.Sprintf("~%d minutes", int(minutes))
	default:
		return fmt.Sprintf("~%.1f hours", minutes/60)
	}
}

// ProcessingStats counts resilience events during a fetch. Snapshots are
// returned by value so callers can log them without racing the fetch.
type ProcessingStats struct {
	TotalRetries  int `json:"total_retries"`
	FailedVideos  int `json:"failed_videos"`
	BotChallenges int `json:"bot_challenges"`
	RateLimits    int `json:"rate_limits"`
}
