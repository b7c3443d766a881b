// Package schedule holds the recurrence configuration of a job and the
// arithmetic that turns a cron expression into the next run time.
package schedule

import (
	"errors"
	"fmt"
)

// ErrInvalidSchedule is returned when a static cron expression does not
// parse, or parses to a schedule that can never fire. It is raised
// synchronously at enqueue time; a job carrying an invalid expression is
// never persisted.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Kind discriminates the three recurrence modes of a job.
type Kind string

const (
	// KindNone means the job is one-shot and follows the ordinary
	// retry/expiry policy.
	KindNone Kind = "none"

	// KindStatic means the job recurs on a fixed 5-field cron expression.
	KindStatic Kind = "static"

	// KindDynamic means the schedule is resolved at run time by invoking
	// a hook on the job's payload.
	KindDynamic Kind = "dynamic"
)

// Expression is a job's recurrence configuration. It is reference data:
// set once at enqueue and never mutated across reschedules of the row.
type Expression struct {
	Kind Kind `json:"kind"`
	// Spec is the cron expression text. Set only for KindStatic.
	Spec string `json:"spec,omitempty"`
	// Hook names the payload capability consulted on each cycle.
	// Set only for KindDynamic.
	Hook string `json:"hook,omitempty"`
}

// None returns the expression of a one-shot job.
func None() Expression {
	return Expression{Kind: KindNone}
}

// Static returns an expression recurring on the given cron spec.
// The spec is validated by Validate at enqueue, not here.
func Static(spec string) Expression {
	return Expression{Kind: KindStatic, Spec: spec}
}

// Dynamic returns an expression resolved by the named payload hook.
func Dynamic(hook string) Expression {
	return Expression{Kind: KindDynamic, Hook: hook}
}

func (e Expression) IsNone() bool    { return e.Kind == KindNone || e.Kind == "" }
func (e Expression) IsStatic() bool  { return e.Kind == KindStatic }
func (e Expression) IsDynamic() bool { return e.Kind == KindDynamic }

// Validate checks an expression at enqueue time. Only static expressions
// carry syntax to check; dynamic ones are resolved lazily and checked then.
func (e Expression) Validate() error {
	switch {
	case e.IsStatic():
		return Validate(e.Spec)
	case e.IsDynamic():
		if e.Hook == "" {
			return fmt.Errorf("%w: dynamic schedule requires a hook name", ErrInvalidSchedule)
		}
		return nil
	default:
		return nil
	}
}

func (e Expression) String() string {
	switch {
	case e.IsStatic():
		return fmt.Sprintf("static(%s)", e.Spec)
	case e.IsDynamic():
		return fmt.Sprintf("dynamic(%s)", e.Hook)
	default:
		return "none"
	}
}
