package models

import (
	"encoding/json"
	"time"

	"refire/internal/schedule"
	"refire/internal/state"
)

// Job is a persisted unit of one-shot or recurring work. A recurring job
// is exactly one row for its whole lifetime: rescheduling mutates RunAt,
// Attempts and LastError in place, while ID, CreatedAt and Schedule never
// change after enqueue.
type Job struct {
	ID        int64
	Name      string
	Payload   json.RawMessage
	Schedule  schedule.Expression
	Status    state.JobStatus
	Attempts  int
	LastError *string
	RunAt     time.Time
	LockedBy  *string
	LockedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
