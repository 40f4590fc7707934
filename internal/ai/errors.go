package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// AI-layer error taxonomy. Domain operations never let any of these reach
// the caller: every public operation substitutes its documented fallback
// instead. The sentinels exist so the gauntlet and its tests can tell the
// failure classes apart.
var (
	// ErrMissingCredential means no API key is configured. Fatal for every
	// remote call; local fallbacks still function.
	ErrMissingCredential = errors.New("ai: missing API credential")

	// ErrModelsExhausted means every model in the pool failed or was
	// unavailable for this request.
	ErrModelsExhausted = errors.New("ai: all models exhausted")

	// ErrMalformedOutput means the model replied, but nothing matching the
	// operation's schema could be recovered from the reply.
	ErrMalformedOutput = errors.New("ai: malformed model output")
)

// StatusError is a transport failure carrying the HTTP status the external
// API answered with. The gauntlet classifies penalties from it.
type StatusError struct {
	Model  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model %s: status %d: %s", e.Model, e.Status, e.Body)
}

// errorKind partitions failures into the three gauntlet penalty classes.
type errorKind int

const (
	kindTransient errorKind = iota // advance without penalty
	kindConfig                     // model id invalid/unsupported: permanent ban
	kindRateLimit                  // quota/overload: retry once, then cooldown
)

// classify maps an attempt error onto a penalty class.
//
// 400/404 mean the model id itself is wrong for this key or API version;
// retrying it later cannot help. 429 and the 5xx overload statuses are
// time-boxed conditions. Everything else (safety blocks, truncated replies,
// network blips) gets no penalty since another model may well succeed.
func classify(err error) errorKind {
	var se *StatusError
	if !errors.As(err, &se) {
		return kindTransient
	}
	switch se.Status {
	case http.StatusBadRequest, http.StatusNotFound:
		return kindConfig
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return kindRateLimit
	default:
		return kindTransient
	}
}
