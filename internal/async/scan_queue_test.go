package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundly-app/foundly/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScanQueueRunsJob(t *testing.T) {
	reportID := uuid.New()
	q := NewScanQueue(func(_ context.Context, id uuid.UUID) ([]entity.MatchCandidate, error) {
		if id != reportID {
			return nil, errors.New("unexpected report")
		}
		return []entity.MatchCandidate{{Confidence: 80}}, nil
	}, testLogger(), WithWorkers(1))
	defer shutdownQueue(t, q)

	require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: reportID, SubmittedAt: time.Now()}))

	require.Eventually(t, func() bool {
		r, ok := q.Result(reportID)
		return ok && r.State == ScanDone
	}, 5*time.Second, 10*time.Millisecond)

	r, ok := q.Result(reportID)
	require.True(t, ok)
	require.Len(t, r.Matches, 1)
	assert.Equal(t, 80, r.Matches[0].Confidence)
	assert.Empty(t, r.Error)
}

func TestScanQueueRecordsFailure(t *testing.T) {
	reportID := uuid.New()
	q := NewScanQueue(func(context.Context, uuid.UUID) ([]entity.MatchCandidate, error) {
		return nil, errors.New("snapshot unavailable")
	}, testLogger(), WithWorkers(1))
	defer shutdownQueue(t, q)

	require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: reportID}))

	require.Eventually(t, func() bool {
		r, ok := q.Result(reportID)
		return ok && r.State == ScanFailed
	}, 5*time.Second, 10*time.Millisecond)

	r, _ := q.Result(reportID)
	assert.Equal(t, "snapshot unavailable", r.Error)
	assert.Nil(t, r.Matches)
}

func TestScanQueueUnknownReport(t *testing.T) {
	q := NewScanQueue(func(context.Context, uuid.UUID) ([]entity.MatchCandidate, error) {
		return nil, nil
	}, testLogger())
	defer shutdownQueue(t, q)

	_, ok := q.Result(uuid.New())
	assert.False(t, ok)
}

func TestScanQueueShutdownDrains(t *testing.T) {
	done := make(chan uuid.UUID, 8)
	q := NewScanQueue(func(_ context.Context, id uuid.UUID) ([]entity.MatchCandidate, error) {
		time.Sleep(10 * time.Millisecond)
		done <- id
		return nil, nil
	}, testLogger(), WithWorkers(2))

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: uuid.New()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Len(t, done, 5, "all queued scans ran before shutdown returned")
}

func TestScanQueueShutdownDuringBackpressure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	q := NewScanQueue(func(context.Context, uuid.UUID) ([]entity.MatchCandidate, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}, testLogger(), WithWorkers(1), WithQueueSize(1))

	// occupy the single worker, then fill the one-slot buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: uuid.New()}))
	<-started
	require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: uuid.New()}))

	// third job blocks in the backpressure send
	blockedID := uuid.New()
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		_ = q.Enqueue(context.Background(), Job{ReportID: blockedID})
	}()
	time.Sleep(20 * time.Millisecond)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	}()

	// shutdown must release the blocked sender without a panic
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue stayed blocked through shutdown")
	}

	close(release)
	<-shutdownDone

	_, ok := q.Result(blockedID)
	assert.False(t, ok, "a job dropped mid-shutdown leaves no pending result")
}

func TestScanQueueNilLogger(t *testing.T) {
	reportID := uuid.New()
	q := NewScanQueue(func(context.Context, uuid.UUID) ([]entity.MatchCandidate, error) {
		return nil, nil
	}, nil, WithWorkers(1))
	defer shutdownQueue(t, q)

	require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: reportID}))
	require.Eventually(t, func() bool {
		r, ok := q.Result(reportID)
		return ok && r.State == ScanDone
	}, 5*time.Second, 10*time.Millisecond)
}

func TestScanQueueRejectsAfterShutdown(t *testing.T) {
	q := NewScanQueue(func(context.Context, uuid.UUID) ([]entity.MatchCandidate, error) {
		return nil, nil
	}, testLogger())
	shutdownQueue(t, q)

	reportID := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), Job{ReportID: reportID}))
	_, ok := q.Result(reportID)
	assert.False(t, ok, "jobs after shutdown are dropped")
}

func shutdownQueue(t *testing.T, q *ScanQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
}
