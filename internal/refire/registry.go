package refire

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"refire/internal/models"
	"refire/internal/recur"
)

// Task is a unit of work reconstructed from a job's payload. The payload
// JSON is decoded into the value the registered factory returns, so task
// structs carry their own arguments as exported fields.
type Task interface {
	Perform(ctx context.Context) error
}

// ScheduleResolver is the capability a task implements to drive a dynamic
// schedule. It receives the job row (with the post-increment attempt
// count) and returns the cron spec for the next cycle, or an empty string
// to stop recurring.
type ScheduleResolver interface {
	ResolveSchedule(job models.Job) (string, error)
}

// TaskRegistry maps job names to payload factories.
type TaskRegistry struct {
	mutex     sync.Mutex
	factories map[string]func() Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		factories: make(map[string]func() Task),
	}
}

// Register adds a task factory by name.
func (r *TaskRegistry) Register(name string, factory func() Task) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *TaskRegistry) Exists(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.factories[name]
	return exists
}

func (r *TaskRegistry) List() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Decode reconstructs a job's task from its payload. An unknown name or
// undecodable payload is a deserialization failure, distinguished so the
// decision procedure and dynamic resolution can treat it deliberately.
func (r *TaskRegistry) Decode(job models.Job) (Task, error) {
	r.mutex.Lock()
	factory, exists := r.factories[job.Name]
	r.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("no task registered for %q", job.Name)
	}

	task := factory()
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, task); err != nil {
			return nil, fmt.Errorf("invalid payload for %q: %w", job.Name, err)
		}
	}
	return task, nil
}

// Resolve asks the job's payload for its next schedule. All resolution
// machinery failures (decode error, missing capability, hook error, hook
// panic) are reported through Resolution.Err and never propagate.
func (r *TaskRegistry) Resolve(job models.Job) (res recur.Resolution) {
	defer func() {
		if p := recover(); p != nil {
			res = recur.Resolution{Err: fmt.Errorf("schedule hook %q panicked: %v", job.Schedule.Hook, p)}
		}
	}()

	task, err := r.Decode(job)
	if err != nil {
		return recur.Resolution{Err: err}
	}

	resolver, ok := task.(ScheduleResolver)
	if !ok {
		return recur.Resolution{Err: fmt.Errorf("task %q does not implement hook %q", job.Name, job.Schedule.Hook)}
	}

	spec, err := resolver.ResolveSchedule(job)
	if err != nil {
		return recur.Resolution{Err: err}
	}
	return recur.Resolution{Spec: spec}
}
