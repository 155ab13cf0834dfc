package model

import "time"

// Job statuses. Writers emit only these values; readers additionally accept
// the legacy "done" as a synonym of complete (see IsComplete).
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
	JobStatusBlocked    = "blocked"
)

// IsComplete reports whether a stored status means the job finished
// successfully. Older rows may carry "done" instead of "complete".
func IsComplete(status string) bool {
	return status == JobStatusComplete || status == "done"
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return IsComplete(status) || status == JobStatusFailed || status == JobStatusBlocked
}

// PlaylistJob is one row in the playlist_jobs queue. A job is leased
// exclusively by a single worker between pending->processing and a terminal
// state; rows are never deleted so history is retained.
type PlaylistJob struct {
	ID          int64      `json:"id"`
	PlaylistURL string     `json:"playlist_url"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"` // 0..100
	Attempts    int        `json:"attempts"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// JobStatusMeta carries optional fields written alongside a status change.
type JobStatusMeta struct {
	Error      *string
	Progress   *int
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// VideoRow is one enriched video inside the materialized dataset. Raw counts
// come from a backend; the derived and formatted columns are produced by the
// enricher.
type VideoRow struct {
	Rank      int     `json:"rank"`
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Views     int64   `json:"views"`
	Likes     int64   `json:"likes"`
	Dislikes  int64   `json:"dislikes"`
	Comments  int64   `json:"comments"`
	Duration  int64   `json:"duration"` // seconds
	Uploader  string  `json:"uploader"`
	Thumbnail string  `json:"thumbnail"`
	Rating    *float64 `json:"rating,omitempty"`

	// Derived by the enricher.
	Controversy       float64 `json:"controversy"`
	EngagementRateRaw float64 `json:"engagement_rate_raw"`

	// Human-formatted mirrors for direct UI use.
	ViewsFormatted      string `json:"views_formatted"`
	LikesFormatted      string `json:"likes_formatted"`
	DislikesFormatted   string `json:"dislikes_formatted"`
	CommentsFormatted   string `json:"comments_formatted"`
	DurationFormatted   string `json:"duration_formatted"`
	ControversyPercent  string `json:"controversy_pct"`
	EngagementRatePct   string `json:"engagement_rate_pct"`
}

// SummaryStats aggregates the enriched rows.
type SummaryStats struct {
	TotalViews          int64   `json:"total_views"`
	TotalLikes          int64   `json:"total_likes"`
	TotalDislikes       int64   `json:"total_dislikes"`
	TotalComments       int64   `json:"total_comments"`
	AvgEngagement       float64 `json:"avg_engagement"`
	ActualPlaylistCount int     `json:"actual_playlist_count"`
	ProcessedVideoCount int     `json:"processed_video_count"`
}

// VideoDatasetSchemaVersion tags the serialized row schema inside df_json so
// readers can evolve independently of writers.
const VideoDatasetSchemaVersion = 1

// VideoDataset is the envelope stored in playlist_stats.df_json.
type VideoDataset struct {
	SchemaVersion int        `json:"schema_version"`
	Rows          []VideoRow `json:"rows"`
}

// PlaylistStats is the materialized result of one analysis run. Uniqueness is
// (playlist_url, processed_date); a second write for the same date replaces
// the stored values instead of adding a row.
type PlaylistStats struct {
	PlaylistURL         string       `json:"playlist_url"` // normalized
	DashboardID         string       `json:"dashboard_id"`
	ProcessedDate       string       `json:"processed_date"` // UTC date, YYYY-MM-DD
	Title               string       `json:"title"`
	ChannelName         string       `json:"channel_name"`
	ChannelThumbnail    string       `json:"channel_thumbnail"`
	ViewCount           int64        `json:"view_count"`
	LikeCount           int64        `json:"like_count"`
	DislikeCount        int64        `json:"dislike_count"`
	CommentCount        int64        `json:"comment_count"`
	VideoCount          int          `json:"video_count"`
	ProcessedVideoCount int          `json:"processed_video_count"`
	AvgDurationSeconds  int64        `json:"avg_duration_seconds"`
	EngagementRate      float64      `json:"engagement_rate"`
	ControversyScore    float64      `json:"controversy_score"`
	Summary             SummaryStats `json:"summary_stats"`
	Dataset             VideoDataset `json:"df_json"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Dashboard event types.
const (
	EventTypeView   = "view"
	EventTypeShare  = "share"
	EventTypeExport = "export"
)

// ValidEventType reports whether t is a recognized dashboard event type.
func ValidEventType(t string) bool {
	return t == EventTypeView || t == EventTypeShare || t == EventTypeExport
}

// DashboardEvent is an append-only interaction record for a dashboard.
type DashboardEvent struct {
	DashboardID string    `json:"dashboard_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DashboardEventCounts aggregates events per type on read.
type DashboardEventCounts struct {
	Views   int64 `json:"views"`
	Shares  int64 `json:"shares"`
	Exports int64 `json:"exports"`
}
