package workers

import (
	"context"
	"log"
	"sync"
)

// VerificationJob is one background proof check. Run performs the provider
// call and, through its completion path, the idempotent resolve; it must
// absorb its own errors (a failed job leaves the submission PENDING).
type VerificationJob struct {
	SubmissionID string
	Run          func(ctx context.Context)
}

// VerificationQueue is the orchestrator-owned background unit of work for
// proof verification: a bounded job channel drained by a fixed worker pool.
// Jobs for different submissions run in parallel; the in-flight guard keeps
// two attempts for the same submission from ever running concurrently.
type VerificationQueue struct {
	jobs    chan VerificationJob
	workers int

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewVerificationQueue(buffer, workers int) *VerificationQueue {
	if buffer < 1 {
		buffer = 64
	}
	if workers < 1 {
		workers = 4
	}
	return &VerificationQueue{
		jobs:     make(chan VerificationJob, buffer),
		workers:  workers,
		inFlight: make(map[string]bool),
	}
}

// Start launches the worker pool. Workers stop when ctx is cancelled;
// queued jobs left behind are dropped (their submissions simply stay
// PENDING for the sweep or a manual reviewer).
func (q *VerificationQueue) Start(ctx context.Context) {
	log.Printf("[VERIFY_QUEUE] starting %d verification worker(s)", q.workers)
	for i := 0; i < q.workers; i++ {
		go q.runWorker(ctx, i)
	}
}

func (q *VerificationQueue) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("[VERIFY_QUEUE] worker %d stopped", id)
			return
		case job := <-q.jobs:
			q.execute(ctx, job)
		}
	}
}

func (q *VerificationQueue) execute(ctx context.Context, job VerificationJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[VERIFY_QUEUE] panic verifying submission %s: %v", job.SubmissionID, r)
		}
		q.mu.Lock()
		delete(q.inFlight, job.SubmissionID)
		q.mu.Unlock()
	}()
	job.Run(ctx)
}

// Enqueue hands a job to the pool without blocking the request path.
// Returns false when the submission is already in flight or the queue is
// full; either way the submission stays PENDING and nothing is lost.
func (q *VerificationQueue) Enqueue(job VerificationJob) bool {
	q.mu.Lock()
	if q.inFlight[job.SubmissionID] {
		q.mu.Unlock()
		log.Printf("[VERIFY_QUEUE] submission %s already in flight, skipping", job.SubmissionID)
		return false
	}
	q.inFlight[job.SubmissionID] = true
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return true
	default:
		q.mu.Lock()
		delete(q.inFlight, job.SubmissionID)
		q.mu.Unlock()
		log.Printf("[VERIFY_QUEUE] queue full, submission %s left PENDING", job.SubmissionID)
		return false
	}
}

// Pending reports how many jobs are queued but not yet picked up.
func (q *VerificationQueue) Pending() int {
	return len(q.jobs)
}
