package refire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"refire/internal/constants"
	"refire/internal/lock"
	"refire/internal/models"
	"refire/internal/recur"
	"refire/internal/state"
	"refire/internal/store"
)

type jobResult struct {
	jobID    int64
	decision recur.Decision
}

// Worker polls the store for due jobs, executes them on a bounded pool and
// applies the recurrence decision for every completed attempt. The row
// lock taken by LockJob is held until the decision is applied, so each row
// sees at most one concurrent execution/reschedule.
type Worker struct {
	store       store.JobStore
	registry    *TaskRegistry
	lock        lock.DistributedLockManager
	instance    string
	clock       func() time.Time
	maxAttempts int
	jobTimeout  time.Duration
	staleAfter  time.Duration
	results     chan jobResult
}

func NewWorker(jobStore store.JobStore, registry *TaskRegistry, lockMgr lock.DistributedLockManager, instance string, maxAttempts int, jobTimeout, staleAfter time.Duration) *Worker {
	return &Worker{
		store:       jobStore,
		registry:    registry,
		lock:        lockMgr,
		instance:    instance,
		clock:       time.Now,
		maxAttempts: maxAttempts,
		jobTimeout:  jobTimeout,
		staleAfter:  staleAfter,
		results:     make(chan jobResult, 1000),
	}
}

// WithClock replaces the authoritative clock. All scheduling arithmetic in
// the worker goes through this clock, never the wall clock directly.
func (w *Worker) WithClock(clock func() time.Time) *Worker {
	w.clock = clock
	return w
}

// Start runs the poll loop until ctx is canceled. An advisory lock keeps
// the loop singleton across instances sharing the database.
func (w *Worker) Start(ctx context.Context, intervalSeconds, workerCount, batchSize int) error {
	if err := w.lock.Acquire(constants.WorkerLock); err != nil {
		return err
	}
	defer w.lock.Release(constants.WorkerLock)

	w.startResultProcessor(ctx)
	go w.sweepStaleLocks(ctx)

	if err := w.store.UnlockStaleJobs(ctx, w.staleAfter); err != nil {
		log.Printf("worker: failed to unlock stale jobs: %v", err)
	}

	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	sem := semaphore.NewWeighted(int64(workerCount))
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopped")
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			w.processDueJobs(ctx, sem, &wg, batchSize)
		}
	}
}

func (w *Worker) processDueJobs(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup, batchSize int) {
	page := 1
	for {
		result, err := w.store.FetchDueJobs(ctx, page, batchSize, w.clock())
		if err != nil {
			log.Printf("worker: failed to fetch due jobs: %v", err)
			return
		}

		for _, job := range result.Items {
			ok, err := w.store.LockJob(ctx, job.ID, w.instance)
			if err != nil {
				log.Printf("worker: failed to lock job %d: %v", job.ID, err)
				continue
			}
			if !ok {
				continue // another instance claimed it first
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				log.Println("worker: semaphore error:", err)
				return
			}
			wg.Add(1)

			go w.handleJob(ctx, sem, wg, job)
		}

		if !result.HasNextPage {
			return
		}
		page++
	}
}

func (w *Worker) handleJob(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup, job models.Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker: panic handling job %d: %v", job.ID, r)
		}
		sem.Release(1)
		wg.Done()
	}()

	outcome := w.execute(ctx, job)
	decision := recur.Decide(job, outcome, w.clock(), w.maxAttempts, w.registry.Resolve)

	w.results <- jobResult{jobID: job.ID, decision: decision}
}

// execute runs one attempt and classifies the result. The task gets a
// bounded context; blowing the budget is a timeout outcome, a panic or
// returned error is a failure, and an undecodable payload is a
// deserialization failure.
func (w *Worker) execute(ctx context.Context, job models.Job) models.Outcome {
	task, err := w.registry.Decode(job)
	if err != nil {
		return models.DeserializationFailure(err.Error())
	}

	attemptCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- task.Perform(attemptCtx)
	}()

	select {
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return models.Timeout(fmt.Sprintf("attempt exceeded %s budget", w.jobTimeout))
		}
		return models.Failure(attemptCtx.Err().Error())
	case err := <-done:
		if err != nil {
			return models.Failure(err.Error())
		}
		return models.Success()
	}
}

// startResultProcessor serializes row mutations: decisions are applied one
// at a time, while the producing goroutine's row lock is still in force.
func (w *Worker) startResultProcessor(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case res := <-w.results:
				if to, keeps := targetStatus(res.decision.Action); keeps {
					if !state.IsValidTransition(state.StatusProcessing, to) {
						log.Printf("worker: invalid transition processing -> %s for job %d", to, res.jobID)
						continue
					}
				}
				if err := w.store.ApplyDecision(ctx, res.jobID, res.decision); err != nil {
					log.Printf("worker: failed to apply %s for job %d: %v", res.decision.Action, res.jobID, err)
				}
			}
		}
	}()
}

// sweepStaleLocks periodically requeues rows abandoned by dead workers.
func (w *Worker) sweepStaleLocks(ctx context.Context) {
	if err := w.lock.Acquire(constants.SweeperLock); err != nil {
		return
	}
	defer w.lock.Release(constants.SweeperLock)

	ticker := time.NewTicker(w.staleAfter)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.UnlockStaleJobs(ctx, w.staleAfter); err != nil {
				log.Printf("worker: stale lock sweep failed: %v", err)
			}
		}
	}
}

// targetStatus maps a decision action onto the row status it produces.
// The second return is false for actions that remove the row.
func targetStatus(action recur.Action) (state.JobStatus, bool) {
	switch action {
	case recur.ActionReschedule:
		return state.StatusQueued, true
	case recur.ActionRetryLater:
		return state.StatusRetrying, true
	case recur.ActionPermanentlyFailed:
		return state.StatusDead, true
	default:
		return "", false
	}
}
