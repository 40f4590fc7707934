package ai

import (
	"log/slog"
	"sync"
	"time"
)

// ModelPool holds the preference-ordered model cascade together with the
// per-process penalty state: permanent bans (invalid/unsupported ids) and
// time-boxed cooldowns (rate limiting). State lives for the process only;
// a restart wipes it.
type ModelPool struct {
	mu       sync.Mutex
	models   []string
	banned   map[string]struct{}
	cooldown map[string]time.Time
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewModelPool builds a pool over the given preference-ordered model ids.
// cooldown is how long a rate-limited model sits out.
func NewModelPool(models []string, cooldown time.Duration, logger *slog.Logger) *ModelPool {
	if logger == nil {
		logger = slog.Default()
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	ms := make([]string, len(models))
	copy(ms, models)
	return &ModelPool{
		models:   ms,
		banned:   make(map[string]struct{}),
		cooldown: make(map[string]time.Time),
		window:   cooldown,
		now:      time.Now,
		logger:   logger,
	}
}

// Available returns the models currently worth attempting, in preference
// order. Banned and cooling-down ids are filtered out — unless filtering
// would leave nothing, in which case the full ordered list is returned so
// the caller always has something to try. Degradation beats a hard stop:
// a cooldown may have been pessimistic, and an exhausted pool should retry
// its best model rather than refuse outright.
func (p *ModelPool) Available() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]string, 0, len(p.models))
	for _, m := range p.models {
		if _, ok := p.banned[m]; ok {
			continue
		}
		if until, ok := p.cooldown[m]; ok && now.Before(until) {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 && len(p.models) > 0 {
		p.logger.Warn("ai.pool.degraded", "reason", "all models banned or cooling down")
		out = append(out, p.models...)
	}
	return out
}

// Ban permanently excludes a model id for the rest of the process. Used
// when the API rejects the id itself (bad request / not found class).
func (p *ModelPool) Ban(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banned[model] = struct{}{}
	p.logger.Warn("ai.pool.model_banned", "model", model)
}

// MarkBusy puts a model on cooldown after a rate-limit class failure. It is
// not a ban: once the window passes the model re-enters rotation.
func (p *ModelPool) MarkBusy(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	until := p.now().Add(p.window)
	p.cooldown[model] = until
	p.logger.Info("ai.pool.model_cooldown", "model", model, "until", until)
}
