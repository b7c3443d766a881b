package state

// JobStatus is the lifecycle status of a persisted job row. Successful
// one-shot jobs are deleted rather than marked, so there is no terminal
// success status.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusRetrying   JobStatus = "retrying"
	StatusDead       JobStatus = "dead"
)

func (s JobStatus) String() string {
	return string(s)
}

var AllStatuses = []JobStatus{
	StatusQueued,
	StatusProcessing,
	StatusRetrying,
	StatusDead,
}

type Transition struct {
	From JobStatus
	To   JobStatus
}

// ValidTransitions covers the worker flow: a queued or retrying row is
// claimed (processing), then either rescheduled in place (queued), parked
// for a one-shot retry (retrying), or expired (dead).
var ValidTransitions = []Transition{
	{From: StatusQueued, To: StatusProcessing},
	{From: StatusRetrying, To: StatusProcessing},
	{From: StatusProcessing, To: StatusQueued},
	{From: StatusProcessing, To: StatusRetrying},
	{From: StatusProcessing, To: StatusDead},
}

func IsValidTransition(from, to JobStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
