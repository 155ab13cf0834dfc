package utils

import (
	"fmt"
	"time"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// Today returns the current UTC date as YYYY-MM-DD, the cache freshness key
// for playlist stats.
func Today() string {
	return GetCurrentTime().Format("2006-01-02")
}

// FormatNumber renders a count in compact human form: 950 -> "950",
// 1200 -> "1.2K", 3400000 -> "3.4M", 5600000000 -> "5.6B".
func FormatNumber(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	case n <= 0:
		return "0"
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatDuration renders seconds as HH:MM:SS, or MM:SS under an hour.
// Negative or zero durations render as "00:00".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "00:00"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// FormatPercent renders a ratio in [0,1] as a percentage with the given
// number of decimals, e.g. FormatPercent(0.1234, 1) -> "12.3%".
func FormatPercent(ratio float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, ratio*100)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
// Used to bound error traces stored on failed jobs.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
