package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/foundly-app/foundly/internal/entity"
)

// ScanState is the lifecycle of a queued scan.
type ScanState string

const (
	ScanPending ScanState = "PENDING"
	ScanRunning ScanState = "RUNNING"
	ScanDone    ScanState = "DONE"
	ScanFailed  ScanState = "FAILED"
)

// ScanResult is what a poll for a queued scan returns.
type ScanResult struct {
	State     ScanState               `json:"state"`
	Matches   []entity.MatchCandidate `json:"matches,omitempty"`
	Error     string                  `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// ScanFunc loads the report, takes the open snapshot and runs the scan.
type ScanFunc func(ctx context.Context, reportID uuid.UUID) ([]entity.MatchCandidate, error)

// ScanQueue runs match scans on background workers. Results are held in
// memory for polling; a restart loses them, the caller just re-enqueues.
type ScanQueue struct {
	scan    ScanFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan Job
	done    chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup
	once    sync.Once

	mu      sync.Mutex
	closed  bool
	results map[uuid.UUID]*ScanResult
}

type Option func(*ScanQueue)

func WithWorkers(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithScanTimeout(d time.Duration) Option {
	return func(q *ScanQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewScanQueue(scan ScanFunc, logger *slog.Logger, opts ...Option) *ScanQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ScanQueue{
		scan:    scan,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
		done:    make(chan struct{}),
		results: make(map[uuid.UUID]*ScanResult),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ScanQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("scan worker started", "worker_id", workerID)

				for job := range q.ch {
					q.setState(job.ReportID, &ScanResult{State: ScanRunning, UpdatedAt: time.Now()})

					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					matches, err := q.scan(ctx, job.ReportID)
					cancel()

					if err != nil {
						q.logger.Error("scan failed", "worker_id", workerID, "report_id", job.ReportID, "error", err)
						q.setState(job.ReportID, &ScanResult{State: ScanFailed, Error: err.Error(), UpdatedAt: time.Now()})
					} else {
						q.logger.Info("scan done", "worker_id", workerID, "report_id", job.ReportID, "matches", len(matches))
						q.setState(job.ReportID, &ScanResult{State: ScanDone, Matches: matches, UpdatedAt: time.Now()})
					}
				}

				q.logger.Info("scan worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a job, blocking when the queue is full. Registering with
// the sender group happens under the same lock that guards closed, so
// Shutdown cannot close the channel while a send is in flight; a sender
// caught mid-send by shutdown drops the job instead.
func (q *ScanQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "report_id", job.ReportID)
		return nil
	}
	q.senders.Add(1)
	q.results[job.ReportID] = &ScanResult{State: ScanPending, UpdatedAt: time.Now()}
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Info("queued scan", "report_id", job.ReportID)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "report_id", job.ReportID)
	select {
	case q.ch <- job:
		q.logger.Info("queued scan", "report_id", job.ReportID)
	case <-q.done:
		q.logger.Warn("shutdown while waiting for queue space, dropping job", "report_id", job.ReportID)
		q.mu.Lock()
		delete(q.results, job.ReportID)
		q.mu.Unlock()
	}
	return nil
}

// Result returns the last known state for a report's queued scan.
func (q *ScanQueue) Result(reportID uuid.UUID) (*ScanResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.results[reportID]
	return r, ok
}

func (q *ScanQueue) setState(reportID uuid.UUID, r *ScanResult) {
	q.mu.Lock()
	q.results[reportID] = r
	q.mu.Unlock()
}

// Shutdown stops intake, waits out in-flight Enqueue calls, then closes the
// channel and drains the workers. Closing done first releases any sender
// blocked on a full queue, so senders.Wait cannot hang.
func (q *ScanQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.senders.Wait()
	close(q.ch)

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-drained:
		q.logger.Info("queue drained, shutdown complete")
	}
}
