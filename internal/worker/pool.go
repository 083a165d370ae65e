package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Pool runs a fixed number of goroutines consuming jobs from a Queue.
type Pool struct {
	queue   *Queue
	workers int
	logger  *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool creates a pool with the given worker count, defaulting to 1 for
// non-positive counts.
func NewPool(queue *Queue, workers int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		queue:   queue,
		workers: workers,
		logger:  logger.With(slog.String("component", "worker_pool")),
	}
}

// Start launches the workers. They run until Stop is called and the queue is
// drained or the queue is closed.
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workers))
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.queue.Close()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, index int) {
	defer p.wg.Done()

	log := p.logger.With(slog.Int("worker", index))
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue.Jobs():
			if !ok {
				return
			}
			if err := job.Execute(ctx); err != nil {
				log.Error("job failed",
					slog.String("job_id", job.ID().String()),
					slog.String("job_kind", job.Kind()),
					slog.String("error", err.Error()))
			}
		}
	}
}
