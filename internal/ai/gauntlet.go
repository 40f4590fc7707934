package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Generator is the single external capability the gauntlet consumes:
// generate text from a prompt (plus optional images and system instruction)
// against a named model.
type Generator interface {
	Generate(ctx context.Context, model string, req GenerateRequest) (string, error)
	HasCredential() bool
}

// Gauntlet walks the model pool in preference order until one model
// produces output. Models are never raced in parallel: parallel calls would
// multiply spend and make cancellation semantics murky for no quality gain,
// since the first success wins regardless.
type Gauntlet struct {
	transport Generator
	pool      *ModelPool
	backoff   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// NewGauntlet wires the invoker over a transport and pool. backoff is the
// delay before the single same-model retry after a rate limit.
func NewGauntlet(transport Generator, pool *ModelPool, backoff time.Duration, logger *slog.Logger) *Gauntlet {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Gauntlet{
		transport: transport,
		pool:      pool,
		backoff:   backoff,
		sleep:     sleepCtx,
		logger:    logger,
	}
}

// Invoke runs the request through the model cascade and returns the first
// successful raw text. Failure classes:
//
//   - config errors (bad model id): ban the model, advance;
//   - rate limits/overload: one same-model retry after backoff, then
//     cooldown and advance;
//   - anything else: record and advance without penalty.
//
// When every model has been tried, the last recorded error is returned, or
// ErrModelsExhausted if nothing was ever recorded.
func (g *Gauntlet) Invoke(ctx context.Context, req GenerateRequest) (string, error) {
	if !g.transport.HasCredential() {
		return "", ErrMissingCredential
	}

	models := g.pool.Available()
	if len(models) == 0 {
		return "", ErrModelsExhausted
	}

	reqID := uuid.New().String()
	start := time.Now()
	g.logger.Info("ai.gauntlet.start", "req_id", reqID, "models", len(models))

	var lastErr error
	for _, model := range models {
		text, err := g.attempt(ctx, reqID, model, req)
		if err == nil {
			g.logger.Info("ai.gauntlet.ok",
				"req_id", reqID,
				"model", model,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	g.logger.Error("ai.gauntlet.exhausted",
		"req_id", reqID,
		"models", len(models),
		"last_error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrModelsExhausted
}

// attempt runs one model, applying its penalty on failure.
func (g *Gauntlet) attempt(ctx context.Context, reqID, model string, req GenerateRequest) (string, error) {
	text, err := g.transport.Generate(ctx, model, req)
	if err == nil {
		return text, nil
	}

	switch classify(err) {
	case kindConfig:
		g.logger.Warn("ai.gauntlet.config_error", "req_id", reqID, "model", model, "error", err)
		g.pool.Ban(model)
		return "", err

	case kindRateLimit:
		g.logger.Warn("ai.gauntlet.rate_limited", "req_id", reqID, "model", model, "error", err)
		if serr := g.sleep(ctx, g.backoff); serr != nil {
			return "", serr
		}
		text, retryErr := g.transport.Generate(ctx, model, req)
		if retryErr == nil {
			return text, nil
		}
		g.pool.MarkBusy(model)
		return "", retryErr

	default:
		g.logger.Warn("ai.gauntlet.attempt_failed", "req_id", reqID, "model", model, "error", err)
		return "", err
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
