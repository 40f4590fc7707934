package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one queued match scan.
type Job struct {
	ReportID    uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
