package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/common"
)

// aicheck is a smoke test for the model cascade: it parses a throwaway
// search query and reports which path (model or fallback) answered.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	transport := ai.NewGeminiTransport(ai.TransportConfig{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, logger)
	if !transport.HasCredential() {
		logger.Warn("GEMINI_API_KEY not set; expect the lexical fallback path")
	}

	client, err := ai.NewClient(ai.ClientConfig{
		Transport: transport,
		Models:    cfg.AI.Models,
		Cooldown:  cfg.AI.Cooldown,
		Backoff:   cfg.AI.RetryBackoff,
		CachePath: ":memory:",
		CacheTTL:  time.Minute,
	}, logger)
	if err != nil {
		logger.Error("open ai client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	query := "black leather wallet lost near the central station"
	if len(os.Args) > 1 {
		query = os.Args[1]
	}

	start := time.Now()
	intent := client.ParseSearchQuery(ctx, query)
	logger.Info("aicheck.result",
		"query", query,
		"type", string(intent.Type),
		"keywords", intent.Keywords,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
