package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsJobs(t *testing.T) {
	q := NewVerificationQueue(8, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		id := string(rune('a' + i))
		if !q.Enqueue(VerificationJob{
			SubmissionID: id,
			Run: func(ctx context.Context) {
				defer wg.Done()
				atomic.AddInt32(&ran, 1)
			},
		}) {
			t.Fatalf("Enqueue(%s) refused with room to spare", id)
		}
	}
	wg.Wait()
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Errorf("ran %d jobs, want 5", got)
	}
}

func TestQueueDedupesInFlight(t *testing.T) {
	q := NewVerificationQueue(8, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	release := make(chan struct{})
	started := make(chan struct{})
	if !q.Enqueue(VerificationJob{
		SubmissionID: "sub-1",
		Run: func(ctx context.Context) {
			close(started)
			<-release
		},
	}) {
		t.Fatal("first enqueue refused")
	}
	<-started

	// same submission while the first attempt is still running
	if q.Enqueue(VerificationJob{SubmissionID: "sub-1", Run: func(ctx context.Context) {}}) {
		t.Error("second enqueue for an in-flight submission should be refused")
	}
	close(release)

	// after completion the slot frees up again
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Enqueue(VerificationJob{SubmissionID: "sub-1", Run: func(ctx context.Context) {}}) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("submission never left the in-flight set")
}

func TestQueueFullRefuses(t *testing.T) {
	// no workers started: jobs pile up in the channel
	q := NewVerificationQueue(2, 1)

	if !q.Enqueue(VerificationJob{SubmissionID: "a", Run: func(ctx context.Context) {}}) {
		t.Fatal("enqueue a")
	}
	if !q.Enqueue(VerificationJob{SubmissionID: "b", Run: func(ctx context.Context) {}}) {
		t.Fatal("enqueue b")
	}
	if q.Enqueue(VerificationJob{SubmissionID: "c", Run: func(ctx context.Context) {}}) {
		t.Error("full queue should refuse instead of blocking")
	}
	if q.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", q.Pending())
	}
	// a refused job must not leave its submission marked in-flight
	q.mu.Lock()
	leaked := q.inFlight["c"]
	q.mu.Unlock()
	if leaked {
		t.Error("refused submission left in the in-flight set")
	}
}

func TestQueueRecoversFromPanic(t *testing.T) {
	q := NewVerificationQueue(8, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan struct{})
	q.Enqueue(VerificationJob{
		SubmissionID: "boom",
		Run: func(ctx context.Context) {
			defer close(done)
			panic("provider client bug")
		},
	})
	<-done

	// the worker survived and keeps draining
	ran := make(chan struct{})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Enqueue(VerificationJob{
			SubmissionID: "boom",
			Run:          func(ctx context.Context) { close(ran) },
		}) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}
