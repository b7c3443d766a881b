package store

import (
	"context"
	"time"

	"refire/internal/models"
	"refire/internal/recur"
	"refire/internal/state"
)

// JobStore defines the persistence contract for job rows.
type JobStore interface {
	// Insert persists a new job row and returns its ID.
	Insert(ctx context.Context, job *models.Job) (int64, error)

	FindByID(ctx context.Context, jobID int64) (*models.Job, error)

	RemoveByID(ctx context.Context, jobID int64) error

	// FetchDueJobs returns claimable jobs whose run_at is at or before now.
	// now is the queue's authoritative clock, supplied by the caller.
	FetchDueJobs(ctx context.Context, page int, pageSize int, now time.Time) (*models.PaginationResult[models.Job], error)

	// LockJob claims a row for the named worker. Returns false when another
	// worker already holds it.
	LockJob(ctx context.Context, jobID int64, lockedBy string) (bool, error)

	// ApplyDecision persists the outcome of the recurrence decision for a
	// locked row: reschedule and retry mutate the row in place (same id,
	// created_at and schedule), delete removes it, permanent failure marks
	// it dead. The row's lock is cleared in the same statement.
	ApplyDecision(ctx context.Context, jobID int64, decision recur.Decision) error

	// UnlockStaleJobs requeues rows whose worker died while holding the lock.
	UnlockStaleJobs(ctx context.Context, timeout time.Duration) error

	GetAll(ctx context.Context, page int, pageSize int, status state.JobStatus) (*models.PaginationResult[models.Job], error)

	CountJobsGroupedByStatus(ctx context.Context) (map[state.JobStatus]int, error)

	// Close closes the underlying database handle.
	Close() error
}
