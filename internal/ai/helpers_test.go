package ai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedTransport replays a canned sequence of replies, one per Generate
// call, and records which models were attempted.
type scriptedTransport struct {
	mu         sync.Mutex
	replies    []scriptedReply
	calls      []string
	credential bool
}

type scriptedReply struct {
	text string
	err  error
}

func newScriptedTransport(replies ...scriptedReply) *scriptedTransport {
	return &scriptedTransport{replies: replies, credential: true}
}

func (s *scriptedTransport) Generate(_ context.Context, model string, _ GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, model)
	if len(s.replies) == 0 {
		return "", &StatusError{Model: model, Status: http.StatusInternalServerError, Body: "script exhausted"}
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func (s *scriptedTransport) HasCredential() bool { return s.credential }

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func ok(text string) scriptedReply { return scriptedReply{text: text} }

func fail(model string, status int) scriptedReply {
	return scriptedReply{err: &StatusError{Model: model, Status: status, Body: "scripted failure"}}
}

// newTestClient builds a Client over an in-memory cache and the given
// transport.
func newTestClient(t interface{ Fatalf(string, ...any) }, transport Generator, models ...string) *Client {
	if len(models) == 0 {
		models = []string{"m1", "m2"}
	}
	c, err := NewClient(ClientConfig{
		Transport: transport,
		Models:    models,
		CachePath: ":memory:",
	}, testLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	// no real sleeping in tests
	c.gauntlet.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}
