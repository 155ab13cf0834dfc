// Command worker runs the playlist analysis job loop and small operational
// helpers against the same store the web process uses.
//
//	worker run     -poll-interval 10 -batch-size 3 -max-runtime 300 -backend api
//	worker enqueue <playlist_url>
//	worker pending
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/navneeth/viralvibes/domain/playlist"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/clients/dislikes"
	"github.com/navneeth/viralvibes/infrastructure/clients/youtube"
	"github.com/navneeth/viralvibes/infrastructure/configuration"
	"github.com/navneeth/viralvibes/infrastructure/logger"
	"github.com/navneeth/viralvibes/infrastructure/persistence"
	"github.com/navneeth/viralvibes/usecase"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "run":
		runCmd(ctx, os.Args[2:])
	case "process":
		processCmd(ctx, os.Args[2:])
	case "enqueue":
		enqueueCmd(ctx, os.Args[2:])
	case "pending":
		pendingCmd(ctx)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: worker <run|process|enqueue|pending> [flags]")
	fmt.Fprintln(os.Stderr, "  run      run the worker loop")
	fmt.Fprintln(os.Stderr, "  process  process a single playlist URL without the scheduler loop")
	fmt.Fprintln(os.Stderr, "  enqueue  enqueue one playlist URL")
	fmt.Fprintln(os.Stderr, "  pending  list pending jobs")
}

func runCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	pollInterval := fs.Int("poll-interval", configuration.C.Worker.PollIntervalSeconds, "polling interval in seconds")
	batchSize := fs.Int("batch-size", configuration.C.Worker.BatchSize, "max jobs to process per batch")
	maxRuntime := fs.Int("max-runtime", configuration.C.Worker.MaxRuntimeSeconds, "max runtime in seconds")
	backendName := fs.String("backend", configuration.C.Backend.Name, "primary backend: api or scraper")
	_ = fs.Parse(args)

	db, jobRepo, statsRepo := mustStore()
	defer db.Close()

	primary, fallback := buildBackends(ctx, *backendName)
	defer closeBackends(primary, fallback)

	worker := usecase.NewJobWorker(jobRepo, statsRepo, primary, fallback, usecase.WorkerConfig{
		PollInterval: time.Duration(*pollInterval) * time.Second,
		BatchSize:    *batchSize,
		MaxRuntime:   time.Duration(*maxRuntime) * time.Second,
	})

	processed, err := worker.Run(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Worker loop failed")
		os.Exit(1)
	}
	fmt.Printf("Worker completed. Jobs processed: %d\n", processed)
}

func processCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	backendName := fs.String("backend", configuration.C.Backend.Name, "primary backend: api or scraper")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: worker process [-backend api|scraper] <playlist_url>")
		os.Exit(1)
	}

	canonical, err := playlist.Normalize(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid playlist url: %v\n", err)
		os.Exit(1)
	}

	db, jobRepo, statsRepo := mustStore()
	defer db.Close()

	primary, fallback := buildBackends(ctx, *backendName)
	defer closeBackends(primary, fallback)

	jobID, err := jobRepo.EnqueueJob(ctx, canonical)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue failed: %v\n", err)
		os.Exit(1)
	}
	jobs, err := jobRepo.LeaseNextPending(ctx, 1)
	if err != nil || len(jobs) == 0 {
		fmt.Fprintf(os.Stderr, "job %d could not be leased (already claimed?): %v\n", jobID, err)
		os.Exit(1)
	}

	worker := usecase.NewJobWorker(jobRepo, statsRepo, primary, fallback, usecase.WorkerConfig{})
	worker.ProcessOne(ctx, jobs[0])

	final, err := jobRepo.GetLatestJob(ctx, canonical)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status lookup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Processed playlist: %s (status=%s)\n", canonical, final.Status)
}

func enqueueCmd(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: worker enqueue <playlist_url>")
		os.Exit(1)
	}
	canonical, err := playlist.Normalize(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid playlist url: %v\n", err)
		os.Exit(1)
	}

	db, jobRepo, _ := mustStore()
	defer db.Close()

	jobID, err := jobRepo.EnqueueJob(ctx, canonical)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Job %d - %s - pending\n", jobID, canonical)
}

func pendingCmd(ctx context.Context) {
	db, jobRepo, _ := mustStore()
	defer db.Close()

	jobs, err := jobRepo.ListPending(ctx, 100)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing pending jobs failed: %v\n", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		fmt.Println("No pending jobs found.")
		return
	}
	for _, job := range jobs {
		fmt.Printf("Job %d - %s - %s\n", job.ID, job.PlaylistURL, job.Status)
	}
}

func mustStore() (*sql.DB, *persistence.PlaylistJobRepository, *persistence.PlaylistStatsRepository) {
	sqlDB, err := persistence.NewPostgreSQLDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	if err := persistence.EnsureAnalysisSchema(sqlDB); err != nil {
		fmt.Fprintf(os.Stderr, "schema bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	return sqlDB, persistence.NewPlaylistJobRepository(sqlDB), persistence.NewPlaylistStatsRepository(sqlDB)
}

// buildBackends resolves the primary backend plus the scraper fallback used
// on quota exhaustion when the API is primary.
func buildBackends(ctx context.Context, name string) (primary, fallback repository.IPlaylistBackend) {
	cfg := configuration.C

	dislikeClient := dislikes.New(cfg.Dislikes.BaseURL, cfg.Backend.MaxRetries, cfg.Backend.RetryDelay())
	scraper := youtube.NewScraperBackend(youtube.ScraperConfig{
		CookiesFile:   cfg.Backend.CookiesFile,
		BatchSize:     cfg.Backend.BatchSize,
		MaxRetries:    cfg.Backend.MaxRetries,
		RetryDelay:    cfg.Backend.RetryDelay(),
		MinVideoDelay: time.Duration(cfg.Backend.MinVideoDelay * float64(time.Second)),
		MaxVideoDelay: time.Duration(cfg.Backend.MaxVideoDelay * float64(time.Second)),
		MinBatchDelay: time.Duration(cfg.Backend.MinBatchDelay * float64(time.Second)),
		MaxBatchDelay: time.Duration(cfg.Backend.MaxBatchDelay * float64(time.Second)),
	}, dislikeClient)

	if name == "scraper" {
		return scraper, nil
	}

	api, err := youtube.NewAPIBackend(ctx, cfg.YouTube.APIKey)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("API backend unavailable, running scraper only")
		return scraper, nil
	}
	return api, scraper
}

func closeBackends(backends ...repository.IPlaylistBackend) {
	for _, b := range backends {
		if b != nil {
			_ = b.Close()
		}
	}
}
