package constants

// Advisory lock IDs used with the distributed lock manager. Each long-lived
// loop takes its own lock so at most one instance runs it cluster-wide.
const (
	MigrationLock = iota
	WorkerLock
	SweeperLock
	ConsumerLock
)

var Locks = []int{
	MigrationLock,
	WorkerLock,
	SweeperLock,
	ConsumerLock,
}
