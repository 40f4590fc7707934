package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/async"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
	"github.com/foundly-app/foundly/internal/export"
	"github.com/foundly-app/foundly/internal/match"
	"github.com/foundly-app/foundly/internal/repository"
	"github.com/foundly-app/foundly/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("db health failed", "error", err)
		os.Exit(1)
	}

	transport := ai.NewGeminiTransport(ai.TransportConfig{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, logger)
	aiClient, err := ai.NewClient(ai.ClientConfig{
		Transport: transport,
		Models:    cfg.AI.Models,
		Cooldown:  cfg.AI.Cooldown,
		Backoff:   cfg.AI.RetryBackoff,
		CachePath: cfg.AI.CachePath,
		CacheTTL:  cfg.AI.CacheTTL,
	}, logger)
	if err != nil {
		logger.Error("open ai client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := aiClient.Close(); err != nil {
			logger.Error("close ai client", "error", err)
		}
	}()

	reportsRepo := repository.NewReportRepository(pool, logger)
	profilesRepo := repository.NewProfileRepository(pool, logger)
	scanner := match.NewScanner(aiClient, cfg.AI.DateWindow, cfg.AI.MatchCap, logger,
		match.WithVisionCap(cfg.AI.ShortMatchCap))
	exporter := export.NewService(reportsRepo, logger)

	scanQueue := async.NewScanQueue(func(ctx context.Context, reportID uuid.UUID) ([]entity.MatchCandidate, error) {
		source, err := reportsRepo.GetByID(ctx, reportID)
		if err != nil {
			return nil, err
		}
		snapshot, err := reportsRepo.ListOpen(ctx)
		if err != nil {
			return nil, err
		}
		return scanner.Scan(ctx, source, snapshot), nil
	}, logger)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		scanQueue.Shutdown(drainCtx)
	}()

	srv := server.New(cfg, pool, reportsRepo, profilesRepo, aiClient, scanner, scanQueue, exporter, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		// drop stale cache rows on boot, then hourly
		aiClient.PruneCache(gctx)
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				aiClient.PruneCache(gctx)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
