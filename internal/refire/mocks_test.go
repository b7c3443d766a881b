package refire

import (
	"context"
	"time"

	"refire/internal/models"
	"refire/internal/recur"
	"refire/internal/state"
)

// ===================== JobStore Mock =========================

type MockJobStore struct {
	MockInsert                   func(ctx context.Context, job *models.Job) (int64, error)
	MockFindByID                 func(ctx context.Context, jobID int64) (*models.Job, error)
	MockRemoveByID               func(ctx context.Context, jobID int64) error
	MockFetchDueJobs             func(ctx context.Context, page int, pageSize int, now time.Time) (*models.PaginationResult[models.Job], error)
	MockLockJob                  func(ctx context.Context, jobID int64, lockedBy string) (bool, error)
	MockApplyDecision            func(ctx context.Context, jobID int64, decision recur.Decision) error
	MockUnlockStaleJobs          func(ctx context.Context, timeout time.Duration) error
	MockGetAll                   func(ctx context.Context, page int, pageSize int, status state.JobStatus) (*models.PaginationResult[models.Job], error)
	MockCountJobsGroupedByStatus func(ctx context.Context) (map[state.JobStatus]int, error)
	MockClose                    func() error
}

func (m *MockJobStore) Insert(ctx context.Context, job *models.Job) (int64, error) {
	return m.MockInsert(ctx, job)
}
func (m *MockJobStore) FindByID(ctx context.Context, jobID int64) (*models.Job, error) {
	return m.MockFindByID(ctx, jobID)
}
func (m *MockJobStore) RemoveByID(ctx context.Context, jobID int64) error {
	return m.MockRemoveByID(ctx, jobID)
}
func (m *MockJobStore) FetchDueJobs(ctx context.Context, page int, pageSize int, now time.Time) (*models.PaginationResult[models.Job], error) {
	return m.MockFetchDueJobs(ctx, page, pageSize, now)
}
func (m *MockJobStore) LockJob(ctx context.Context, jobID int64, lockedBy string) (bool, error) {
	return m.MockLockJob(ctx, jobID, lockedBy)
}
func (m *MockJobStore) ApplyDecision(ctx context.Context, jobID int64, decision recur.Decision) error {
	return m.MockApplyDecision(ctx, jobID, decision)
}
func (m *MockJobStore) UnlockStaleJobs(ctx context.Context, timeout time.Duration) error {
	return m.MockUnlockStaleJobs(ctx, timeout)
}
func (m *MockJobStore) GetAll(ctx context.Context, page int, pageSize int, status state.JobStatus) (*models.PaginationResult[models.Job], error) {
	return m.MockGetAll(ctx, page, pageSize, status)
}
func (m *MockJobStore) CountJobsGroupedByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	return m.MockCountJobsGroupedByStatus(ctx)
}
func (m *MockJobStore) Close() error {
	return m.MockClose()
}

// ===================== DistributedLockManager Mock =========================

type MockDistributedLockManager struct {
	MockAcquire func(lockID int) error
	MockRelease func(lockID int) error
}

func (m *MockDistributedLockManager) Acquire(lockID int) error {
	if m.MockAcquire != nil {
		return m.MockAcquire(lockID)
	}
	return nil
}
func (m *MockDistributedLockManager) Release(lockID int) error {
	if m.MockRelease != nil {
		return m.MockRelease(lockID)
	}
	return nil
}

// ===================== MessageBroker Mock =========================

type MockMessageBroker struct {
	MockPublish func(queue string, message []byte) error
	MockConsume func(ctx context.Context, queue string) (<-chan []byte, error)
	MockClose   func() error
}

func (m *MockMessageBroker) Publish(queue string, message []byte) error {
	return m.MockPublish(queue, message)
}
func (m *MockMessageBroker) Consume(ctx context.Context, queue string) (<-chan []byte, error) {
	return m.MockConsume(ctx, queue)
}
func (m *MockMessageBroker) Close() error {
	return m.MockClose()
}
