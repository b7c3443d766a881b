package refire

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refire/internal/models"
	"refire/internal/schedule"
)

type emailTask struct {
	To         string `json:"to"`
	ShouldFail bool   `json:"should_fail"`
}

func (t *emailTask) Perform(ctx context.Context) error {
	if t.ShouldFail {
		return errors.New("smtp unreachable")
	}
	return nil
}

// backupTask recurs nightly until it has run MaxRuns times.
type backupTask struct {
	MaxRuns int `json:"max_runs"`
}

func (t *backupTask) Perform(ctx context.Context) error { return nil }

func (t *backupTask) ResolveSchedule(job models.Job) (string, error) {
	if job.Attempts >= t.MaxRuns {
		return "", nil
	}
	return "0 2 * * *", nil
}

type brokenHookTask struct{}

func (t *brokenHookTask) Perform(ctx context.Context) error { return nil }

func (t *brokenHookTask) ResolveSchedule(job models.Job) (string, error) {
	return "", errors.New("upstream config service down")
}

type panickingHookTask struct{}

func (t *panickingHookTask) Perform(ctx context.Context) error { return nil }

func (t *panickingHookTask) ResolveSchedule(job models.Job) (string, error) {
	panic("nil map write")
}

func newTestRegistry(t *testing.T) *TaskRegistry {
	t.Helper()
	registry := NewTaskRegistry()
	require.NoError(t, registry.Register("send_email", func() Task { return &emailTask{} }))
	require.NoError(t, registry.Register("nightly_backup", func() Task { return &backupTask{} }))
	require.NoError(t, registry.Register("broken_hook", func() Task { return &brokenHookTask{} }))
	require.NoError(t, registry.Register("panicking_hook", func() Task { return &panickingHookTask{} }))
	return registry
}

func TestTaskRegistry_RegisterDuplicate(t *testing.T) {
	registry := newTestRegistry(t)

	err := registry.Register("send_email", func() Task { return &emailTask{} })
	assert.Error(t, err)
}

func TestTaskRegistry_Decode(t *testing.T) {
	registry := newTestRegistry(t)

	job := models.Job{Name: "send_email", Payload: json.RawMessage(`{"to":"ops@example.com"}`)}
	task, err := registry.Decode(job)
	require.NoError(t, err)

	email, ok := task.(*emailTask)
	require.True(t, ok)
	assert.Equal(t, "ops@example.com", email.To)
}

func TestTaskRegistry_DecodeUnknownName(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Decode(models.Job{Name: "no_such_task"})
	assert.Error(t, err)
}

func TestTaskRegistry_DecodeBadPayload(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Decode(models.Job{Name: "send_email", Payload: json.RawMessage(`{not json`)})
	assert.Error(t, err)
}

func TestTaskRegistry_Resolve(t *testing.T) {
	registry := newTestRegistry(t)
	dynamic := schedule.Dynamic("resolve_schedule")

	t.Run("recurring while under max runs", func(t *testing.T) {
		job := models.Job{Name: "nightly_backup", Schedule: dynamic, Attempts: 1, Payload: json.RawMessage(`{"max_runs":3}`)}
		res := registry.Resolve(job)
		require.NoError(t, res.Err)
		assert.True(t, res.Recurring())
		assert.Equal(t, "0 2 * * *", res.Spec)
	})

	t.Run("stop once max runs reached", func(t *testing.T) {
		job := models.Job{Name: "nightly_backup", Schedule: dynamic, Attempts: 3, Payload: json.RawMessage(`{"max_runs":3}`)}
		res := registry.Resolve(job)
		require.NoError(t, res.Err)
		assert.False(t, res.Recurring())
	})

	t.Run("undecodable payload is contained", func(t *testing.T) {
		job := models.Job{Name: "nightly_backup", Schedule: dynamic, Payload: json.RawMessage(`{broken`)}
		res := registry.Resolve(job)
		assert.Error(t, res.Err)
		assert.False(t, res.Recurring())
	})

	t.Run("task without the capability is contained", func(t *testing.T) {
		job := models.Job{Name: "send_email", Schedule: dynamic, Payload: json.RawMessage(`{}`)}
		res := registry.Resolve(job)
		assert.Error(t, res.Err)
	})

	t.Run("hook error is contained", func(t *testing.T) {
		job := models.Job{Name: "broken_hook", Schedule: dynamic}
		res := registry.Resolve(job)
		assert.Error(t, res.Err)
	})

	t.Run("hook panic is contained", func(t *testing.T) {
		job := models.Job{Name: "panicking_hook", Schedule: dynamic}
		res := registry.Resolve(job)
		assert.Error(t, res.Err)
	})
}
