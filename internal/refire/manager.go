package refire

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"refire/internal/broker"
	"refire/internal/constants"
	"refire/internal/lock"
	"refire/internal/models"
	"refire/internal/schedule"
	"refire/internal/store"
)

// Manager is the client surface of the queue: it enqueues one-shot and
// recurring jobs and owns graceful shutdown of the background services.
type Manager struct {
	JobStore store.JobStore
	Registry *TaskRegistry

	lockManager      lock.DistributedLockManager
	mBroker          broker.MessageBroker
	clock            func() time.Time
	writeJobsToQueue bool
	jobQueueName     string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(jobStore store.JobStore, registry *TaskRegistry, lockManager lock.DistributedLockManager, mBroker broker.MessageBroker, writeJobsToQueue bool, jobQueueName string) *Manager {
	return &Manager{
		JobStore:         jobStore,
		Registry:         registry,
		lockManager:      lockManager,
		mBroker:          mBroker,
		clock:            time.Now,
		writeJobsToQueue: writeJobsToQueue,
		jobQueueName:     jobQueueName,
	}
}

// WithClock replaces the authoritative clock used for initial run_at
// computation.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// Register adds a task factory by name. Tasks must be registered before a
// job bearing that name becomes due.
func (m *Manager) Register(name string, factory func() Task) error {
	return m.Registry.Register(name, factory)
}

// Enqueue persists a job with the given recurrence configuration. A static
// expression is validated synchronously: an invalid one fails the call
// with schedule.ErrInvalidSchedule and no row is created. In queue-writer
// mode the job is published to the broker instead and 0 is returned, as
// the ID is unknown until the consumer inserts it.
func (m *Manager) Enqueue(ctx context.Context, jobName string, task Task, expr schedule.Expression) (int64, error) {
	if err := expr.Validate(); err != nil {
		return 0, err
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal task: %w", err)
	}

	job := models.Job{
		Name:     jobName,
		Payload:  payload,
		Schedule: expr,
	}
	job.RunAt, err = m.initialRunAt(job)
	if err != nil {
		return 0, err
	}

	if m.writeJobsToQueue {
		return 0, m.publish(job)
	}
	return m.JobStore.Insert(ctx, &job)
}

// EnqueueAt persists a one-shot job to run at the given time.
func (m *Manager) EnqueueAt(ctx context.Context, jobName string, task Task, runAt time.Time) (int64, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal task: %w", err)
	}

	job := models.Job{
		Name:     jobName,
		Payload:  payload,
		Schedule: schedule.None(),
		RunAt:    runAt,
	}

	if m.writeJobsToQueue {
		return 0, m.publish(job)
	}
	return m.JobStore.Insert(ctx, &job)
}

// ScheduleEveryMinute enqueues a job recurring once a minute.
func (m *Manager) ScheduleEveryMinute(ctx context.Context, jobName string, task Task) (int64, error) {
	return m.Enqueue(ctx, jobName, task, schedule.Static("* * * * *"))
}

// ScheduleEveryHour enqueues a job recurring at the top of every hour.
func (m *Manager) ScheduleEveryHour(ctx context.Context, jobName string, task Task) (int64, error) {
	return m.Enqueue(ctx, jobName, task, schedule.Static("0 * * * *"))
}

// ScheduleEveryDay enqueues a job recurring at midnight.
func (m *Manager) ScheduleEveryDay(ctx context.Context, jobName string, task Task) (int64, error) {
	return m.Enqueue(ctx, jobName, task, schedule.Static("0 0 * * *"))
}

// RemoveJob deletes a job row by ID.
func (m *Manager) RemoveJob(ctx context.Context, jobID int64) error {
	return m.JobStore.RemoveByID(ctx, jobID)
}

// FindJob returns a job row by ID.
func (m *Manager) FindJob(ctx context.Context, jobID int64) (*models.Job, error) {
	return m.JobStore.FindByID(ctx, jobID)
}

// initialRunAt computes the first eligible execution time. A dynamic
// schedule gets an initial resolution; if the payload cannot resolve yet
// (undecodable, missing capability, hook error), the job still enqueues
// and runs immediately, like a one-shot.
func (m *Manager) initialRunAt(job models.Job) (time.Time, error) {
	now := m.clock()

	switch {
	case job.Schedule.IsStatic():
		return schedule.NextRun(job.Schedule.Spec, now)

	case job.Schedule.IsDynamic():
		res := m.Registry.Resolve(job)
		if res.Err != nil {
			log.Printf("manager: initial schedule resolution for %q failed, enqueueing to run now: %v", job.Name, res.Err)
			return now, nil
		}
		if !res.Recurring() {
			return now, nil
		}
		next, err := schedule.NextRun(res.Spec, now)
		if err != nil {
			log.Printf("manager: %q resolved unusable schedule %q, enqueueing to run now: %v", job.Name, res.Spec, err)
			return now, nil
		}
		return next, nil

	default:
		return now, nil
	}
}

func (m *Manager) publish(job models.Job) error {
	envelope := models.Envelope{
		Name:     job.Name,
		Payload:  job.Payload,
		Schedule: job.Schedule,
		RunAt:    job.RunAt,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := m.mBroker.Publish(m.jobQueueName, body); err != nil {
		return fmt.Errorf("failed to publish job to broker: %w", err)
	}
	return nil
}

// ConsumeQueue drains published envelopes into the job store. It runs on
// the instance that won the consumer advisory lock and returns when ctx
// is canceled.
func (m *Manager) ConsumeQueue(ctx context.Context) error {
	if err := m.lockManager.Acquire(constants.ConsumerLock); err != nil {
		return err
	}
	defer m.lockManager.Release(constants.ConsumerLock)

	msgs, err := m.mBroker.Consume(ctx, m.jobQueueName)
	if err != nil {
		return err
	}

	for body := range msgs {
		var envelope models.Envelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			log.Printf("manager: dropping undecodable envelope: %v", err)
			continue
		}

		job := models.Job{
			Name:     envelope.Name,
			Payload:  envelope.Payload,
			Schedule: envelope.Schedule,
			RunAt:    envelope.RunAt,
		}
		if _, err := m.JobStore.Insert(ctx, &job); err != nil {
			log.Printf("manager: failed to insert job %q from broker: %v", job.Name, err)
		}
	}

	return ctx.Err()
}

// GracefulExit blocks until SIGINT or SIGTERM, then stops background
// services and releases held resources.
func (m *Manager) GracefulExit() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("refire shutting down gracefully...")

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	if err := m.JobStore.Close(); err != nil {
		log.Println(err.Error())
	}

	if m.mBroker != nil {
		if err := m.mBroker.Close(); err != nil {
			log.Println(err.Error())
		}
	}

	for _, lockID := range constants.Locks {
		m.lockManager.Release(lockID)
	}

	log.Println("refire shutdown complete.")
}
