// Package worker runs background jobs off the request path. Its single
// current user is mention fanout: comment bodies are scanned for @handles
// and matching board members get a user_mentioned event. Jobs are
// best-effort; a full queue drops the job with a log line rather than
// slowing the mutation that spawned it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("worker queue is closed")
	ErrQueueFull   = errors.New("worker queue is full")
)

// Job is a unit of background work.
type Job interface {
	// ID identifies the job for logging.
	ID() uuid.UUID

	// Kind names the job type for logging.
	Kind() string

	// Execute runs the job.
	Execute(ctx context.Context) error
}

// Queue is a buffered in-memory job queue feeding the worker pool.
type Queue struct {
	jobs   chan Job
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:   make(chan Job, size),
		logger: logger.With(slog.String("component", "worker_queue")),
	}
}

// Enqueue adds a job for processing without blocking.
// Returns ErrQueueFull if the buffer is exhausted and ErrQueueClosed after Close.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("job enqueued",
			slog.String("job_id", job.ID().String()),
			slog.String("job_kind", job.Kind()),
			slog.Int("queue_len", len(q.jobs)))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// Close stops further submission. Jobs already buffered are still consumed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

// Jobs returns the read side of the queue for the worker pool.
func (q *Queue) Jobs() <-chan Job {
	return q.jobs
}
