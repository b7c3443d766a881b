package refire

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"refire/internal/broker"
	"refire/internal/config"
	refiredb "refire/internal/db"
	"refire/internal/lock"
	"refire/internal/store/postgres"
)

// SetUp builds the whole queue from configuration: database connection,
// migrations (under the migration advisory lock), job store, task
// registry, optional broker, and the background worker loop. The returned
// Manager is ready to register tasks and enqueue jobs.
func SetUp(ctx context.Context, cfg config.Config) (*Manager, error) {
	sqlDB, err := sql.Open("postgres", cfg.PostgresConfig.ConnectionUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	lockManager := lock.NewPostgresDistributedLockManager(sqlDB)

	if err := refiredb.Init(cfg.PostgresConfig.ConnectionUrl, lockManager); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	jobStore := postgres.NewPostgresJobStore(sqlDB, cfg.LockTTL)
	registry := NewTaskRegistry()

	var mBroker broker.MessageBroker
	queueName := ""
	if cfg.UseQueueWriter {
		mq := cfg.RabbitMQConfig
		mBroker, err = broker.NewRabbitMQ(mq.URL, mq.Exchange, mq.Queue, mq.RoutingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		queueName = mq.Queue
	}

	manager := NewManager(jobStore, registry, lockManager, mBroker, cfg.UseQueueWriter, queueName)

	runCtx, cancel := context.WithCancel(ctx)
	manager.cancel = cancel

	worker := NewWorker(jobStore, registry, lockManager, cfg.Instance, cfg.MaxAttempts, cfg.JobTimeout, cfg.StaleAfter)

	manager.wg.Add(1)
	go func() {
		defer manager.wg.Done()
		if err := worker.Start(runCtx, cfg.PollInterval, cfg.WorkerCount, cfg.BatchSize); err != nil && runCtx.Err() == nil {
			log.Printf("worker exited: %v", err)
		}
	}()

	if cfg.UseQueueWriter {
		manager.wg.Add(1)
		go func() {
			defer manager.wg.Done()
			if err := manager.ConsumeQueue(runCtx); err != nil && runCtx.Err() == nil {
				log.Printf("queue consumer exited: %v", err)
			}
		}()
	}

	return manager, nil
}
