package lock

// DistributedLockManager guards singleton loops (migrations, the worker
// poller, the stale-lock sweeper) across instances sharing one database.
type DistributedLockManager interface {
	Acquire(lockID int) error
	Release(lockID int) error
}
