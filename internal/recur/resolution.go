// Package recur decides, after each execution attempt, whether and when a
// job runs again. It is pure computation: the worker feeds it the job row,
// the attempt outcome and the queue's authoritative clock, and it emits the
// next persisted state of the row.
package recur

import "refire/internal/models"

// Resolution is the explicit result of asking a job's payload for its next
// schedule. Exactly one of three things is true: the payload produced a
// cron spec (Spec non-empty), the payload asked to stop recurring (Spec
// empty, Err nil), or the resolution machinery itself failed (Err non-nil).
//
// The decision procedure treats the last two very differently: an explicit
// stop ends the row's lifetime, while a machinery failure routes the cycle
// through the ordinary one-shot policy so a buggy hook cannot delete work.
// Err is logged and never written to the job's last_error, which must
// reflect the execution outcome only.
type Resolution struct {
	Spec string
	Err  error
}

// Recurring reports whether the resolution produced a concrete schedule.
func (r Resolution) Recurring() bool {
	return r.Err == nil && r.Spec != ""
}

// ResolveFunc resolves a dynamic schedule for the given job. The job
// carries the post-increment attempt count, so payload logic such as
// "stop after N attempts" observes the attempt that just completed.
// Implementations must not panic; payload deserialization failures are
// reported through Resolution.Err.
type ResolveFunc func(job models.Job) Resolution
