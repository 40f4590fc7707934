package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/match"
	"github.com/foundly-app/foundly/internal/repository"
)

// matchscan runs one scan for a report id and prints the ranked candidates.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: matchscan <report_id>")
		os.Exit(2)
	}
	reportID, err := uuid.Parse(os.Args[1])
	if err != nil {
		logger.Error("invalid report_id", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL env var is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

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
	defer func() { _ = aiClient.Close() }()

	reports := repository.NewReportRepository(pool, logger)
	source, err := reports.GetByID(ctx, reportID)
	if err != nil {
		logger.Error("load report", "report_id", reportID, "error", err)
		os.Exit(1)
	}
	snapshot, err := reports.ListOpen(ctx)
	if err != nil {
		logger.Error("load snapshot", "error", err)
		os.Exit(1)
	}

	scanner := match.NewScanner(aiClient, cfg.AI.DateWindow, cfg.AI.MatchCap, logger,
		match.WithVisionCap(cfg.AI.ShortMatchCap))
	for _, m := range scanner.Scan(ctx, source, snapshot) {
		logger.Info("match",
			"report_id", m.Report.ID.String(),
			"title", m.Report.Title,
			"confidence", m.Confidence,
			"from_fallback", m.FromFallback,
		)
	}
}
