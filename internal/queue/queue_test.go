package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"botpos-chat-backend/internal/logging"
)

func TestJobsReportTheirErrors(t *testing.T) {
	q := NewRequestQueueManager(4, 2, logging.Discard())
	defer q.Shutdown()

	boom := errors.New("boom")
	errc := make(chan error, 1)
	if err := q.Enqueue(context.Background(), Job{Fn: func() error { return boom }, Errc: errc}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := <-errc; !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestShutdownDrainsQueuedJobs(t *testing.T) {
	q := NewRequestQueueManager(16, 1, logging.Discard())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(context.Background(), Job{Fn: func() error {
			ran.Add(1)
			return nil
		}}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.Shutdown()
	q.Shutdown()

	if got := ran.Load(); got != 10 {
		t.Fatalf("expected 10 jobs to run, got %d", got)
	}
	if q.Depth() != 0 {
		t.Fatalf("expected empty queue after shutdown, got %d", q.Depth())
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewRequestQueueManager(1, 1, logging.Discard())
	q.Shutdown()

	err := q.Enqueue(context.Background(), Job{Fn: func() error { return nil }})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestEnqueueGivesUpWhenContextEnds(t *testing.T) {
	q := NewRequestQueueManager(0, 1, logging.Discard())
	defer q.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	if err := q.Enqueue(context.Background(), Job{Fn: func() error {
		close(started)
		<-release
		return nil
	}}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Enqueue(ctx, Job{Fn: func() error { return nil }})
	close(release)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPanickingJobKeepsWorkerAlive(t *testing.T) {
	q := NewRequestQueueManager(2, 1, logging.Discard())
	defer q.Shutdown()

	errc := make(chan error, 1)
	if err := q.Enqueue(context.Background(), Job{Fn: func() error { panic("bad handler") }, Errc: errc}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := <-errc; !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}

	if err := q.Enqueue(context.Background(), Job{Fn: func() error { return nil }, Errc: errc}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("worker should still serve jobs, got %v", err)
	}
}
