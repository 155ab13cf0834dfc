package usecase

import (
	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

// Enrich derives the engagement and controversy columns for each raw video
// row, attaches the human-formatted mirrors, and aggregates the summary.
// Pure and deterministic: same rows in, same rows and summary out.
//
//	engagement_rate_raw = (likes + dislikes + comments) / (views + 1)
//	controversy         = 1 - |likes - dislikes| / (likes + dislikes + 1)
//
// Both are clipped to [0,1]; the +1 denominators make division safe for
// zero-view and zero-vote videos.
func Enrich(rows []model.VideoData, totalInPlaylist int) ([]model.VideoRow, model.SummaryStats) {
	summary := model.SummaryStats{
		ActualPlaylistCount: totalInPlaylist,
		ProcessedVideoCount: len(rows),
	}
	if len(rows) == 0 {
		return []model.VideoRow{}, summary
	}

	enriched := make([]model.VideoRow, 0, len(rows))
	var engagementSum float64

	for _, r := range rows {
		engagement := clip01(float64(r.Likes+r.Dislikes+r.Comments) / float64(r.Views+1))
		controversy := clip01(1 - absInt64(r.Likes-r.Dislikes)/float64(r.Likes+r.Dislikes+1))
		engagementSum += engagement

		enriched = append(enriched, model.VideoRow{
			Rank:      r.Rank,
			ID:        r.ID,
			Title:     r.Title,
			Views:     r.Views,
			Likes:     r.Likes,
			Dislikes:  r.Dislikes,
			Comments:  r.Comments,
			Duration:  r.Duration,
			Uploader:  r.Uploader,
			Thumbnail: r.Thumbnail,
			Rating:    r.Rating,

			Controversy:       controversy,
			EngagementRateRaw: engagement,

			ViewsFormatted:     utils.FormatNumber(r.Views),
			LikesFormatted:     utils.FormatNumber(r.Likes),
			DislikesFormatted:  utils.FormatNumber(r.Dislikes),
			CommentsFormatted:  utils.FormatNumber(r.Comments),
			DurationFormatted:  utils.FormatDuration(r.Duration),
			ControversyPercent: utils.FormatPercent(controversy, 1),
			EngagementRatePct:  utils.FormatPercent(engagement, 2),
		})

		summary.TotalViews += r.Views
		summary.TotalLikes += r.Likes
		summary.TotalDislikes += r.Dislikes
		summary.TotalComments += r.Comments
	}

	summary.AvgEngagement = engagementSum / float64(len(rows))
	return enriched, summary
}

// BuildStats assembles the materialized stats row from enriched rows.
func BuildStats(canonicalURL, dashboardID string, meta *model.PlaylistMetadata, rows []model.VideoRow, summary model.SummaryStats) *model.PlaylistStats {
	stats := &model.PlaylistStats{
		PlaylistURL:         canonicalURL,
		DashboardID:         dashboardID,
		ProcessedDate:       utils.Today(),
		ViewCount:           summary.TotalViews,
		LikeCount:           summary.TotalLikes,
		DislikeCount:        summary.TotalDislikes,
		CommentCount:        summary.TotalComments,
		ProcessedVideoCount: summary.ProcessedVideoCount,
		VideoCount:          summary.ActualPlaylistCount,
		EngagementRate:      summary.AvgEngagement,
		Summary:             summary,
		Dataset: model.VideoDataset{
			SchemaVersion: model.VideoDatasetSchemaVersion,
			Rows:          rows,
		},
	}
	if meta != nil {
		stats.Title = meta.Title
		stats.ChannelName = meta.ChannelName
		stats.ChannelThumbnail = meta.ChannelThumbnail
		if meta.VideoCount > 0 {
			stats.VideoCount = meta.VideoCount
		}
	}

	if len(rows) > 0 {
		var durationSum, controversySum float64
		for _, r := range rows {
			durationSum += float64(r.Duration)
			controversySum += r.Controversy
		}
		stats.AvgDurationSeconds = int64(durationSum / float64(len(rows)))
		stats.ControversyScore = controversySum / float64(len(rows))
	}
	return stats
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt64(n int64) float64 {
	if n < 0 {
		return float64(-n)
	}
	return float64(n)
}
