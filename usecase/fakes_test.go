package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

// fakeJobRepo is an in-memory IPlaylistJob mirroring the store contract:
// atomic lease, newest-by-created_at reads, one active job per URL.
type fakeJobRepo struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*model.PlaylistJob

	enqueueCalls   int
	progressWrites []int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[int64]*model.PlaylistJob{}}
}

func (f *fakeJobRepo) EnqueueJob(ctx context.Context, playlistURL string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueueCalls++

	for _, j := range f.jobs {
		if j.PlaylistURL == playlistURL && (j.Status == model.JobStatusPending || j.Status == model.JobStatusProcessing) {
			return j.ID, nil
		}
	}

	f.nextID++
	f.jobs[f.nextID] = &model.PlaylistJob{
		ID:          f.nextID,
		PlaylistURL: playlistURL,
		Status:      model.JobStatusPending,
		CreatedAt:   time.Now().UTC().Add(time.Duration(f.nextID) * time.Millisecond),
	}
	return f.nextID, nil
}

func (f *fakeJobRepo) LeaseNextPending(ctx context.Context, limit int) ([]*model.PlaylistJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []*model.PlaylistJob
	for _, j := range f.jobs {
		if j.Status == model.JobStatusPending {
			pending = append(pending, j)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := utils.GetCurrentTime()
	leased := make([]*model.PlaylistJob, 0, len(pending))
	for _, j := range pending {
		j.Status = model.JobStatusProcessing
		j.StartedAt = &now
		j.Attempts++
		cp := *j
		leased = append(leased, &cp)
	}
	return leased, nil
}

func (f *fakeJobRepo) UpdateJobProgress(ctx context.Context, jobID int64, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[jobID]; ok {
		j.Progress = progress
		f.progressWrites = append(f.progressWrites, progress)
	}
	return nil
}

func (f *fakeJobRepo) MarkJobStatus(ctx context.Context, jobID int64, status string, meta model.JobStatusMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return model.ErrNotFound
	}
	j.Status = status
	if status == model.JobStatusComplete {
		j.Progress = 100
	}
	if meta.Error != nil {
		j.LastError = meta.Error
	}
	if model.IsTerminal(status) {
		now := utils.GetCurrentTime()
		j.FinishedAt = &now
	}
	return nil
}

func (f *fakeJobRepo) GetLatestJob(ctx context.Context, playlistURL string) (*model.PlaylistJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.PlaylistJob
	for _, j := range f.jobs {
		if j.PlaylistURL != playlistURL {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return nil, model.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeJobRepo) ListPending(ctx context.Context, limit int) ([]*model.PlaylistJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []*model.PlaylistJob
	for _, j := range f.jobs {
		if j.Status == model.JobStatusPending {
			cp := *j
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeJobRepo) get(id int64) *model.PlaylistJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (f *fakeJobRepo) countRows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// fakeStatsRepo keys rows on (playlist_url, processed_date) like the table's
// conflict key.
type fakeStatsRepo struct {
	mu   sync.Mutex
	rows map[string]*model.PlaylistStats

	upserts int
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{rows: map[string]*model.PlaylistStats{}}
}

func (f *fakeStatsRepo) key(url, date string) string { return url + "|" + date }

func (f *fakeStatsRepo) UpsertStats(ctx context.Context, stats *model.PlaylistStats) (*model.PlaylistStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	cp := *stats
	f.rows[f.key(stats.PlaylistURL, stats.ProcessedDate)] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStatsRepo) GetCachedStats(ctx context.Context, playlistURL string, checkDate bool) (*model.PlaylistStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if checkDate {
		if s, ok := f.rows[f.key(playlistURL, utils.Today())]; ok {
			cp := *s
			return &cp, nil
		}
		return nil, model.ErrNotFound
	}
	var newest *model.PlaylistStats
	for _, s := range f.rows {
		if s.PlaylistURL != playlistURL {
			continue
		}
		if newest == nil || s.ProcessedDate > newest.ProcessedDate {
			newest = s
		}
	}
	if newest == nil {
		return nil, model.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeStatsRepo) GetByDashboardID(ctx context.Context, dashboardID string) (*model.PlaylistStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *model.PlaylistStats
	for _, s := range f.rows {
		if s.DashboardID != dashboardID {
			continue
		}
		if newest == nil || s.ProcessedDate > newest.ProcessedDate {
			newest = s
		}
	}
	if newest == nil {
		return nil, model.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeStatsRepo) countRows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []model.DashboardEvent
	err    error
}

func (f *fakeEventRepo) RecordEvent(ctx context.Context, dashboardID, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, model.DashboardEvent{
		DashboardID: dashboardID,
		EventType:   eventType,
		OccurredAt:  utils.GetCurrentTime(),
	})
	return nil
}

func (f *fakeEventRepo) GetEventCounts(ctx context.Context, dashboardID string) (*model.DashboardEventCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := &model.DashboardEventCounts{}
	for _, e := range f.events {
		if e.DashboardID != dashboardID {
			continue
		}
		switch e.EventType {
		case model.EventTypeView:
			counts.Views++
		case model.EventTypeShare:
			counts.Shares++
		case model.EventTypeExport:
			counts.Exports++
		}
	}
	return counts, nil
}

// fakeBackend is a scriptable IPlaylistBackend.
type fakeBackend struct {
	name     string
	meta     *model.PlaylistMetadata
	videos   []model.VideoData
	fetchErr error
	stats    model.ProcessingStats

	mu           sync.Mutex
	fetchCalls   int
	previewCalls int
	closed       bool
	progressFeed [][2]int // (processed, total) pairs replayed through onProgress
}

func (f *fakeBackend) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeBackend) FetchPreview(ctx context.Context, url string) (*model.PlaylistMetadata, error) {
	f.mu.Lock()
	f.previewCalls++
	f.mu.Unlock()
	if f.meta == nil {
		return nil, &model.BackendError{Op: "preview"}
	}
	cp := *f.meta
	return &cp, nil
}

func (f *fakeBackend) FetchVideos(ctx context.Context, url string, maxVideos int, onProgress repository.ProgressFunc) ([]model.VideoData, *model.PlaylistMetadata, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, nil, f.fetchErr
	}
	if onProgress != nil {
		for _, p := range f.progressFeed {
			onProgress(p[0], p[1], nil)
		}
	}
	var meta *model.PlaylistMetadata
	if f.meta != nil {
		cp := *f.meta
		meta = &cp
	}
	return f.videos, meta, nil
}

func (f *fakeBackend) EstimateTime(count int, expandAll bool) model.ProcessingEstimate {
	return model.ProcessingEstimate{TotalVideos: count, VideosToExpand: count, EstimatedSeconds: 1}
}

func (f *fakeBackend) Stats() model.ProcessingStats { return f.stats }

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
