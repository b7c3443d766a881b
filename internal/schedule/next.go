package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// specParser accepts the standard 5-field cron grammar
// (minute, hour, day-of-month, month, day-of-week). Descriptors like
// "@every 30s" are rejected: the queue is minute-granular.
var specParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// parsed caches compiled cron specs. Recurring jobs evaluate the same
// expression on every cycle, so the cache is effectively append-only.
var (
	parsedMu sync.RWMutex
	parsed   = make(map[string]cron.Schedule)
)

func compile(spec string) (cron.Schedule, error) {
	parsedMu.RLock()
	sched, ok := parsed[spec]
	parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	parsedMu.Lock()
	parsed[spec] = sched
	parsedMu.Unlock()
	return sched, nil
}

// Validate reports whether spec is a well-formed 5-field cron expression.
func Validate(spec string) error {
	_, err := compile(spec)
	return err
}

// NextRun returns the next time spec fires strictly after the given
// reference time, minute granular. The reference must be the queue's
// authoritative clock; NextRun never consults the wall clock itself.
// An error is returned only for a malformed spec or one that never fires
// (e.g. "0 0 30 2 *"); an expression validated at enqueue and observed to
// fire once cannot fail here.
func NextRun(spec string, after time.Time) (time.Time, error) {
	sched, err := compile(spec)
	if err != nil {
		return time.Time{}, err
	}

	next := sched.Next(after)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidSchedule, spec)
	}
	return next, nil
}
