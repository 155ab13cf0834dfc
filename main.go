package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/cache"
	"github.com/navneeth/viralvibes/infrastructure/clients/dislikes"
	"github.com/navneeth/viralvibes/infrastructure/clients/youtube"
	"github.com/navneeth/viralvibes/infrastructure/configuration"
	"github.com/navneeth/viralvibes/infrastructure/logger"
	"github.com/navneeth/viralvibes/infrastructure/persistence"
	httpHandler "github.com/navneeth/viralvibes/interfaces/http"
	"github.com/navneeth/viralvibes/server"
	"github.com/navneeth/viralvibes/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	db, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to the database")
		panic(err)
	}
	if err := persistence.EnsureAnalysisSchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("Schema bootstrap failed")
		panic(err)
	}
	logger.GetLogger().WithField("db", db.Ping() == nil).Info("Database connected.")

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis unavailable; previews are fetched live")
	}

	jobRepository := persistence.NewPlaylistJobRepository(db)
	statsRepository := persistence.NewPlaylistStatsRepository(db)
	eventRepository := persistence.NewDashboardEventRepository(db)
	previewCache := cache.NewPreviewCache(redisClient)

	previewBackend := buildPreviewBackend(ctx)
	if previewBackend != nil {
		defer previewBackend.Close()
	}

	analysisUsecase := usecase.NewAnalysisUsecase(jobRepository, statsRepository, eventRepository, previewCache, previewBackend)

	analysisHandler := httpHandler.NewAnalysisHandler(analysisUsecase)
	dashboardHandler := httpHandler.NewDashboardHandler(analysisUsecase)

	router := server.InitiateRouter(analysisHandler, dashboardHandler)

	port := configuration.C.App.Port
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func InitiateDatabase() (*sql.DB, error) {
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// buildPreviewBackend picks the cheap metadata source for the preview
// endpoint. The web process never runs full fetches; those live in the
// worker.
func buildPreviewBackend(ctx context.Context) repository.IPlaylistBackend {
	cfg := configuration.C

	if cfg.Backend.Name != "scraper" && cfg.YouTube.APIKey != "" {
		backend, err := youtube.NewAPIBackend(ctx, cfg.YouTube.APIKey)
		if err == nil {
			return backend
		}
		logger.GetLogger().WithField("error", err).Warn("API backend unavailable for previews, using scraper")
	}

	dislikeClient := dislikes.New(cfg.Dislikes.BaseURL, cfg.Backend.MaxRetries, cfg.Backend.RetryDelay())
	return youtube.NewScraperBackend(youtube.ScraperConfig{
		CookiesFile:   cfg.Backend.CookiesFile,
		BatchSize:     cfg.Backend.BatchSize,
		MaxRetries:    cfg.Backend.MaxRetries,
		RetryDelay:    cfg.Backend.RetryDelay(),
		MinVideoDelay: time.Duration(cfg.Backend.MinVideoDelay * float64(time.Second)),
		MaxVideoDelay: time.Duration(cfg.Backend.MaxVideoDelay * float64(time.Second)),
		MinBatchDelay: time.Duration(cfg.Backend.MinBatchDelay * float64(time.Second)),
		MaxBatchDelay: time.Duration(cfg.Backend.MaxBatchDelay * float64(time.Second)),
	}, dislikeClient)
}
