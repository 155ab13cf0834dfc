package usecase

import (
	"context"
	"math"

	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/logger"
)

// ProgressReporter translates backend progress callbacks into writes on the
// job row. Progress is non-critical: store failures are logged and
// swallowed, and updates that cannot be coerced to integers are dropped.
type ProgressReporter struct {
	jobs  repository.IPlaylistJob
	jobID int64
}

func NewProgressReporter(jobs repository.IPlaylistJob, jobID int64) *ProgressReporter {
	return &ProgressReporter{jobs: jobs, jobID: jobID}
}

// Func returns the callback handed to a backend.
func (r *ProgressReporter) Func(ctx context.Context) repository.ProgressFunc {
	return func(processed, total int, meta map[string]any) {
		r.Update(ctx, processed, total)
	}
}

// Update computes the clipped percentage and writes it to the job row.
// Live updates cap at 99: progress 100 is reserved for the complete
// transition so the two never disagree.
func (r *ProgressReporter) Update(ctx context.Context, processed, total int) {
	pct := ProgressPercent(processed, total)
	if pct > 99 {
		pct = 99
	}
	if err := r.jobs.UpdateJobProgress(ctx, r.jobID, pct); err != nil {
		logger.GetLogger().
			WithField("job_id", r.jobID).
			WithField("error", err).
			Warn("Progress update failed")
	}
}

// HandleRaw absorbs the legacy callback shapes at the reporter boundary:
// (processed, total), (processed, total, meta), or a single map carrying
// "processed" and "total". Anything that cannot be coerced is dropped.
func (r *ProgressReporter) HandleRaw(ctx context.Context, args ...any) {
	processed, total, ok := coerceProgressArgs(args)
	if !ok {
		logger.GetLogger().
			WithField("job_id", r.jobID).
			Debug("Dropping malformed progress update")
		return
	}
	r.Update(ctx, processed, total)
}

// ProgressPercent is floor(100*processed/max(total,1)) clipped to [0,100].
func ProgressPercent(processed, total int) int {
	if total < 1 {
		total = 1
	}
	pct := int(math.Floor(100 * float64(processed) / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func coerceProgressArgs(args []any) (processed, total int, ok bool) {
	switch len(args) {
	case 1:
		m, isMap := args[0].(map[string]any)
		if !isMap {
			return 0, 0, false
		}
		processed, ok = coerceInt(m["processed"])
		if !ok {
			return 0, 0, false
		}
		total, ok = coerceInt(m["total"])
		return processed, total, ok
	case 2, 3:
		processed, ok = coerceInt(args[0])
		if !ok {
			return 0, 0, false
		}
		total, ok = coerceInt(args[1])
		return processed, total, ok
	default:
		return 0, 0, false
	}
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
