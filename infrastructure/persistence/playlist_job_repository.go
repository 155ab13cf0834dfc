package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

var _ repository.IPlaylistJob = (*PlaylistJobRepository)(nil)

// PlaylistJobRepository implements the job queue over Postgres (native sql.DB).
type PlaylistJobRepository struct {
	db *sql.DB
}

func NewPlaylistJobRepository(db *sql.DB) *PlaylistJobRepository {
	return &PlaylistJobRepository{db: db}
}

// DB exposes the underlying handle for operational tooling.
func (r *PlaylistJobRepository) DB() *sql.DB { return r.db }

const jobColumns = `id, playlist_url, status, progress, attempts, last_error, created_at, started_at, finished_at`

func scanJob(scanner interface{ Scan(...any) error }) (*model.PlaylistJob, error) {
	j := &model.PlaylistJob{}
	var lastErr sql.NullString
	var startedAt, finishedAt sql.NullTime
	if err := scanner.Scan(&j.ID, &j.PlaylistURL, &j.Status, &j.Progress, &j.Attempts, &lastErr, &j.CreatedAt, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	if lastErr.Valid {
		j.LastError = &lastErr.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		j.FinishedAt = &t
	}
	return j, nil
}

// EnqueueJob inserts a pending job. A partial unique index keeps at most one
// non-terminal job per URL; when a racing submit wins the insert, the
// surviving job's id is returned instead of an error.
func (r *PlaylistJobRepository) EnqueueJob(ctx context.Context, playlistURL string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO playlist_jobs (playlist_url, status, progress, attempts, created_at)
		 VALUES ($1, 'pending', 0, 0, $2) RETURNING id`,
		playlistURL, utils.GetCurrentTime()).Scan(&id)
	if err == nil {
		return id, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		existing, lookupErr := r.GetLatestJob(ctx, playlistURL)
		if lookupErr != nil {
			return 0, err
		}
		return existing.ID, nil
	}
	return 0, err
}

// LeaseNextPending claims up to limit pending jobs in one atomic statement.
// FOR UPDATE SKIP LOCKED guarantees two workers never lease the same row.
func (r *PlaylistJobRepository) LeaseNextPending(ctx context.Context, limit int) ([]*model.PlaylistJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE playlist_jobs SET status='processing', started_at=$1, attempts=attempts+1
		 WHERE id IN (
			SELECT id FROM playlist_jobs
			WHERE status='pending'
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		utils.GetCurrentTime(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.PlaylistJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *PlaylistJobRepository) UpdateJobProgress(ctx context.Context, jobID int64, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE playlist_jobs SET progress=$1 WHERE id=$2 AND status='processing'`,
		progress, jobID)
	return err
}

// MarkJobStatus transitions a job. Terminal states stamp finished_at; a
// completed job is always at progress 100.
func (r *PlaylistJobRepository) MarkJobStatus(ctx context.Context, jobID int64, status string, meta model.JobStatusMeta) error {
	now := utils.GetCurrentTime()

	progress := sql.NullInt64{}
	if meta.Progress != nil {
		progress = sql.NullInt64{Int64: int64(*meta.Progress), Valid: true}
	}
	if status == model.JobStatusComplete {
		progress = sql.NullInt64{Int64: 100, Valid: true}
	}

	lastErr := sql.NullString{}
	if meta.Error != nil {
		lastErr = sql.NullString{String: *meta.Error, Valid: true}
	}

	finishedAt := sql.NullTime{}
	if model.IsTerminal(status) {
		finishedAt = sql.NullTime{Time: now, Valid: true}
		if meta.FinishedAt != nil {
			finishedAt = sql.NullTime{Time: *meta.FinishedAt, Valid: true}
		}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE playlist_jobs SET
			status=$1,
			progress=COALESCE($2, progress),
			last_error=COALESCE($3, last_error),
			finished_at=COALESCE($4, finished_at)
		 WHERE id=$5`,
		status, progress, lastErr, finishedAt, jobID)
	return err
}

// GetLatestJob returns the newest job for the URL by created_at.
func (r *PlaylistJobRepository) GetLatestJob(ctx context.Context, playlistURL string) (*model.PlaylistJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM playlist_jobs
		 WHERE playlist_url=$1 ORDER BY created_at DESC LIMIT 1`,
		playlistURL)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *PlaylistJobRepository) ListPending(ctx context.Context, limit int) ([]*model.PlaylistJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM playlist_jobs
		 WHERE status='pending' ORDER BY created_at ASC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.PlaylistJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
