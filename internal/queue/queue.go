package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"botpos-chat-backend/internal/logging"
)

// ErrStopped is returned for jobs offered after Shutdown.
var ErrStopped = errors.New("request queue stopped")

var ErrPanic = errors.New("job panicked")

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs HTTP handler jobs on a bounded worker pool.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewRequestQueueManager(queueSize int, maxWorkers int, logger *slog.Logger) *RequestQueueManager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
		logger:     logging.OrDefault(logger).With("component", "request_queue"),
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			rqm.logger.Debug("worker started", "worker", workerID)
			for job := range rqm.JobQueue {
				err := rqm.run(job)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			rqm.logger.Debug("worker stopped", "worker", workerID)
		}(i)
	}
}

// run turns a panicking job into an error so the worker survives.
func (rqm *RequestQueueManager) run(job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rqm.logger.Error("job panicked", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return job.Fn()
}

// Enqueue waits for room in the queue. It gives up when ctx ends, which for
// HTTP jobs means the client went away.
func (rqm *RequestQueueManager) Enqueue(ctx context.Context, job Job) error {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		return ErrStopped
	}
	select {
	case rqm.JobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth reports how many jobs are waiting for a worker.
func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

// Shutdown stops accepting jobs and waits for the workers to drain the queue.
func (rqm *RequestQueueManager) Shutdown() {
	rqm.mu.Lock()
	if !rqm.closed {
		rqm.closed = true
		close(rqm.JobQueue)
	}
	rqm.mu.Unlock()
	rqm.wg.Wait()
}
