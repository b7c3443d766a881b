package models

import (
	"encoding/json"
	"time"

	"refire/internal/schedule"
)

// Envelope is the wire form of an enqueue request when jobs are published
// to the message broker instead of inserted directly. The consumer drains
// envelopes into the job store.
type Envelope struct {
	Name     string              `json:"name"`
	Payload  json.RawMessage     `json:"payload"`
	Schedule schedule.Expression `json:"schedule"`
	RunAt    time.Time           `json:"run_at"`
}
