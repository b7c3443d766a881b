package recur

import (
	"log"
	"time"

	"refire/internal/models"
	"refire/internal/schedule"
)

// Action is what the queue layer must do with the job row after an attempt.
type Action string

const (
	// ActionReschedule updates the row in place with a new run_at computed
	// from the job's recurrence schedule. Issued for recurring jobs on
	// success and failure alike.
	ActionReschedule Action = "reschedule"

	// ActionRetryLater updates the row in place for an ordinary one-shot
	// retry after a failed attempt.
	ActionRetryLater Action = "retry_later"

	// ActionDelete removes the row: one-shot success, or a dynamic
	// schedule that resolved to "stop recurring".
	ActionDelete Action = "delete"

	// ActionPermanentlyFailed marks the row dead: a one-shot job that
	// exhausted its attempt budget.
	ActionPermanentlyFailed Action = "permanently_failed"
)

// Decision is the next persisted state of a job row. Attempts and
// LastError accompany every action that keeps the row; RunAt is set for
// ActionReschedule and ActionRetryLater.
type Decision struct {
	Action    Action
	RunAt     time.Time
	Attempts  int
	LastError *string
}

// cycleSchedule is the recurrence in effect for a single attempt cycle.
type cycleSchedule struct {
	spec     string
	present  bool // a concrete cron spec governs this cycle
	terminal bool // the payload explicitly asked to stop recurring
}

// Decide maps a completed execution attempt onto the job's next persisted
// state. It is a pure function of (job, outcome, now, maxAttempts) and the
// resolver's behavior: identical inputs yield identical decisions.
//
// now must be the queue's authoritative clock captured when the attempt
// concluded. maxAttempts applies to one-shot jobs only; a recurring job
// that fails keeps recurring with a growing attempt counter forever.
// resolve is consulted only for dynamic schedules and may be nil otherwise.
func Decide(job models.Job, outcome models.Outcome, now time.Time, maxAttempts int, resolve ResolveFunc) Decision {
	attempts := job.Attempts + 1

	var lastError *string
	if !outcome.Ok() {
		msg := outcome.Message
		lastError = &msg
	}

	cycle := resolveCycle(job, attempts, resolve)

	if cycle.present {
		next, err := schedule.NextRun(cycle.spec, now)
		if err == nil {
			return Decision{
				Action:    ActionReschedule,
				RunAt:     next,
				Attempts:  attempts,
				LastError: lastError,
			}
		}
		// A dynamic hook handed back a spec that does not evaluate. The
		// job falls through to the one-shot path for this cycle; the
		// failure is a scheduling condition, not the job's last_error.
		log.Printf("recur: job %d resolved unusable schedule %q: %v", job.ID, cycle.spec, err)
	}

	// An explicit "stop recurring" from the payload ends the row's
	// lifetime whatever the attempt's outcome was.
	if cycle.terminal {
		return Decision{Action: ActionDelete, Attempts: attempts}
	}

	if outcome.Ok() {
		return Decision{Action: ActionDelete, Attempts: attempts}
	}

	if attempts < maxAttempts {
		return Decision{
			Action:    ActionRetryLater,
			RunAt:     now,
			Attempts:  attempts,
			LastError: lastError,
		}
	}

	return Decision{
		Action:    ActionPermanentlyFailed,
		Attempts:  attempts,
		LastError: lastError,
	}
}

// resolveCycle determines the recurrence governing this cycle. A static
// expression is used as persisted; a dynamic one is re-resolved on every
// cycle with the post-increment attempt count and never written back. A
// resolver failure is logged and treated as "no recurrence this cycle",
// which routes the job through the ordinary one-shot policy rather than
// deleting it on a possibly transient fault.
func resolveCycle(job models.Job, attempts int, resolve ResolveFunc) cycleSchedule {
	switch {
	case job.Schedule.IsStatic():
		return cycleSchedule{spec: job.Schedule.Spec, present: true}

	case job.Schedule.IsDynamic():
		if resolve == nil {
			log.Printf("recur: job %d has dynamic schedule %q but no resolver", job.ID, job.Schedule.Hook)
			return cycleSchedule{}
		}
		observed := job
		observed.Attempts = attempts
		res := resolve(observed)
		if res.Err != nil {
			log.Printf("recur: job %d schedule resolution via %q failed: %v", job.ID, job.Schedule.Hook, res.Err)
			return cycleSchedule{}
		}
		if !res.Recurring() {
			return cycleSchedule{terminal: true}
		}
		return cycleSchedule{spec: res.Spec, present: true}

	default:
		return cycleSchedule{}
	}
}
