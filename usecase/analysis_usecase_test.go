package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navneeth/viralvibes/domain/dto"
	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/playlist"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

func newAnalysisFixture() (*fakeJobRepo, *fakeStatsRepo, *fakeEventRepo, IAnalysisUsecase) {
	jobs := newFakeJobRepo()
	stats := newFakeStatsRepo()
	events := &fakeEventRepo{}
	uc := NewAnalysisUsecase(jobs, stats, events, nil, nil)
	return jobs, stats, events, uc
}

func seedStats(t *testing.T, stats *fakeStatsRepo, canonical, date string) *model.PlaylistStats {
	t.Helper()
	row := &model.PlaylistStats{
		PlaylistURL:   canonical,
		DashboardID:   playlist.Fingerprint(canonical),
		ProcessedDate: date,
		Title:         "Seeded",
		VideoCount:    5,
	}
	_, err := stats.UpsertStats(context.Background(), row)
	require.NoError(t, err)
	return row
}

func TestSubmit_InvalidURL(t *testing.T) {
	_, _, _, uc := newAnalysisFixture()
	_, err := uc.Submit(context.Background(), "https://example.com/nope")
	assert.ErrorIs(t, err, playlist.ErrInvalidURL)
}

func TestSubmit_CacheHitRedirects(t *testing.T) {
	jobs, stats, _, uc := newAnalysisFixture()

	canonical, err := playlist.Normalize("https://www.youtube.com/playlist?list=PL_ABC")
	require.NoError(t, err)
	seedStats(t, stats, canonical, utils.Today())

	// Same playlist, different index parameter: still a cache hit.
	resp, err := uc.Submit(context.Background(), "https://www.youtube.com/playlist?list=PL_ABC&index=3")
	require.NoError(t, err)

	assert.Equal(t, dto.SubmitOutcomeRedirect, resp.Outcome)
	assert.Equal(t, playlist.Fingerprint(canonical), resp.DashboardID)
	assert.Equal(t, "/d/"+resp.DashboardID, resp.RedirectURL)
	// No job row was created.
	assert.Zero(t, jobs.countRows())
}

func TestSubmit_EnqueuesWhenNoJob(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()

	resp, err := uc.Submit(context.Background(), "https://www.youtube.com/playlist?list=PL_NEW")
	require.NoError(t, err)

	assert.Equal(t, dto.SubmitOutcomeEnqueued, resp.Outcome)
	assert.NotZero(t, resp.JobID)
	assert.Equal(t, 1, jobs.countRows())

	job := jobs.get(resp.JobID)
	require.NotNil(t, job)
	assert.Equal(t, model.JobStatusPending, job.Status)
	canonical, _ := playlist.Normalize("https://www.youtube.com/playlist?list=PL_NEW")
	assert.Equal(t, canonical, job.PlaylistURL)
}

func TestSubmit_DoesNotEnqueueWhileActive(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()
	ctx := context.Background()

	first, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_X")
	require.NoError(t, err)
	require.Equal(t, dto.SubmitOutcomeEnqueued, first.Outcome)
	enqueuesAfterFirst := jobs.enqueueCalls

	// Second submit while the job is pending observes it instead.
	second, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_X&index=2")
	require.NoError(t, err)
	assert.Equal(t, dto.SubmitOutcomeInProgress, second.Outcome)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, enqueuesAfterFirst, jobs.enqueueCalls)
	assert.Equal(t, 1, jobs.countRows())

	// Same while processing.
	_, err = jobs.LeaseNextPending(ctx, 1)
	require.NoError(t, err)
	third, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_X")
	require.NoError(t, err)
	assert.Equal(t, dto.SubmitOutcomeInProgress, third.Outcome)
	assert.Equal(t, 1, jobs.countRows())
}

func TestSubmit_ConcurrentSameURLCoalesces(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()
	ctx := context.Background()

	const submitters = 8
	responses := make([]*dto.SubmitJobResponse, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_RACE")
			if err == nil {
				responses[idx] = resp
			}
		}(i)
	}
	wg.Wait()

	// Exactly one job row exists and every response resolves to it.
	assert.Equal(t, 1, jobs.countRows())
	var jobID int64
	for _, resp := range responses {
		require.NotNil(t, resp)
		if jobID == 0 {
			jobID = resp.JobID
		}
		assert.Equal(t, jobID, resp.JobID)
	}
}

func TestSubmit_CompleteJobRedirects(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()
	ctx := context.Background()

	resp, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_DONE")
	require.NoError(t, err)
	leased, err := jobs.LeaseNextPending(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, jobs.MarkJobStatus(ctx, leased[0].ID, model.JobStatusComplete, model.JobStatusMeta{}))

	again, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_DONE")
	require.NoError(t, err)
	assert.Equal(t, dto.SubmitOutcomeRedirect, again.Outcome)
	assert.Equal(t, resp.DashboardID, again.DashboardID)
}

func TestSubmit_BlockedJobSurfacesBlocked(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()
	ctx := context.Background()

	_, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_BLK")
	require.NoError(t, err)
	leased, err := jobs.LeaseNextPending(ctx, 1)
	require.NoError(t, err)
	msg := "bot challenge after retries"
	require.NoError(t, jobs.MarkJobStatus(ctx, leased[0].ID, model.JobStatusBlocked, model.JobStatusMeta{Error: &msg}))

	resp, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_BLK")
	require.NoError(t, err)
	assert.Equal(t, dto.SubmitOutcomeBlocked, resp.Outcome)
	// Blocked does not auto-enqueue.
	assert.Equal(t, 1, jobs.countRows())
}

func TestSubmit_FailedJobReEnqueues(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()
	ctx := context.Background()

	first, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_F")
	require.NoError(t, err)
	leased, err := jobs.LeaseNextPending(ctx, 1)
	require.NoError(t, err)
	msg := "backend error"
	require.NoError(t, jobs.MarkJobStatus(ctx, leased[0].ID, model.JobStatusFailed, model.JobStatusMeta{Error: &msg}))

	second, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_F")
	require.NoError(t, err)
	assert.Equal(t, dto.SubmitOutcomeEnqueued, second.Outcome)
	assert.NotEqual(t, first.JobID, second.JobID)
	// History retained: the failed row still exists alongside the new one.
	assert.Equal(t, 2, jobs.countRows())
}

func TestProgress_CompleteCarriesRedirect(t *testing.T) {
	jobs, _, _, uc := newAnalysisFixture()
	ctx := context.Background()

	_, err := uc.Submit(ctx, "https://www.youtube.com/playlist?list=PL_P")
	require.NoError(t, err)
	leased, err := jobs.LeaseNextPending(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, jobs.MarkJobStatus(ctx, leased[0].ID, model.JobStatusComplete, model.JobStatusMeta{}))

	view, err := uc.Progress(ctx, "https://www.youtube.com/playlist?list=PL_P")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, view.Status)
	assert.Equal(t, 100, view.Progress)
	assert.NotEmpty(t, view.RedirectURL)
	assert.Equal(t, 2, view.PollAfterSeconds)
}

func TestProgress_NoJob(t *testing.T) {
	_, _, _, uc := newAnalysisFixture()
	_, err := uc.Progress(context.Background(), "https://www.youtube.com/playlist?list=PL_NONE")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDashboard_RecordsViewEvent(t *testing.T) {
	_, stats, events, uc := newAnalysisFixture()
	canonical, _ := playlist.Normalize("https://www.youtube.com/playlist?list=PL_D")
	row := seedStats(t, stats, canonical, utils.Today())

	view, err := uc.Dashboard(context.Background(), row.DashboardID)
	require.NoError(t, err)
	assert.Equal(t, row.DashboardID, view.DashboardID)
	assert.Equal(t, "Seeded", view.Stats.Title)
	assert.Equal(t, int64(1), view.Interest.Views)
	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventTypeView, events.events[0].EventType)
}

func TestDashboard_NotFound(t *testing.T) {
	_, _, _, uc := newAnalysisFixture()
	_, err := uc.Dashboard(context.Background(), "0000000000000000")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDashboard_EventFailureNonFatal(t *testing.T) {
	_, stats, events, uc := newAnalysisFixture()
	events.err = assert.AnError
	canonical, _ := playlist.Normalize("https://www.youtube.com/playlist?list=PL_E")
	row := seedStats(t, stats, canonical, utils.Today())

	view, err := uc.Dashboard(context.Background(), row.DashboardID)
	require.NoError(t, err)
	assert.NotNil(t, view.Stats)
}

func TestRecordEvent(t *testing.T) {
	_, stats, events, uc := newAnalysisFixture()
	canonical, _ := playlist.Normalize("https://www.youtube.com/playlist?list=PL_S")
	row := seedStats(t, stats, canonical, utils.Today())

	require.NoError(t, uc.RecordEvent(context.Background(), row.DashboardID, model.EventTypeShare))
	assert.Error(t, uc.RecordEvent(context.Background(), row.DashboardID, "bogus"))
	assert.Error(t, uc.RecordEvent(context.Background(), "ffffffffffffffff", model.EventTypeShare))

	counts, err := events.GetEventCounts(context.Background(), row.DashboardID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Shares)
}

func TestFullView_ServesNewestRow(t *testing.T) {
	_, stats, _, uc := newAnalysisFixture()
	canonical, _ := playlist.Normalize("https://www.youtube.com/playlist?list=PL_V")
	seedStats(t, stats, canonical, "2026-07-01")

	view, err := uc.FullView(context.Background(), "https://www.youtube.com/playlist?list=PL_V&index=1")
	require.NoError(t, err)
	assert.Equal(t, "Seeded", view.Stats.Title)
}
