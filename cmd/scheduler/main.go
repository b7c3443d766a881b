package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"refire/internal/config"
	"refire/internal/models"
	"refire/internal/refire"
	"refire/internal/schedule"
)

// SendSMSTask delivers a single text message.
type SendSMSTask struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (t *SendSMSTask) Perform(ctx context.Context) error {
	log.Printf("sending SMS to %s: %s", t.To, t.Message)
	if t.To == "" {
		return errors.New("missing recipient")
	}
	return nil
}

// DailyReportTask regenerates the sales report every night.
type DailyReportTask struct {
	Region string `json:"region"`
}

func (t *DailyReportTask) Perform(ctx context.Context) error {
	log.Printf("generating daily sales report for %s", t.Region)
	return nil
}

// TrialReminderTask nags a trial user a few times, then gives up on its
// own via the dynamic schedule hook.
type TrialReminderTask struct {
	UserID    int64 `json:"user_id"`
	MaxNudges int   `json:"max_nudges"`
}

func (t *TrialReminderTask) Perform(ctx context.Context) error {
	log.Printf("reminding user %d about their trial", t.UserID)
	return nil
}

func (t *TrialReminderTask) ResolveSchedule(job models.Job) (string, error) {
	if job.Attempts >= t.MaxNudges {
		return "", nil // stop recurring, the row is removed
	}
	return "30 9 * * *", nil
}

func main() {
	const postgresURL = "host=localhost port=5432 user=postgres password=postgres dbname=refire sslmode=disable"

	cfg, err := config.NewConfig("west-canada",
		config.WithWorkerCount(15),
		config.WithPollInterval(5),
		config.WithBatchSize(500),
		config.WithMaxAttempts(3),
		config.WithJobTimeout(time.Minute),
		config.WithPostgresConfig(config.PostgresConfig{ConnectionUrl: postgresURL}),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	manager, err := refire.SetUp(ctx, *cfg)
	if err != nil {
		log.Fatal(err)
	}

	manager.Register("send_sms", func() refire.Task { return &SendSMSTask{} })
	manager.Register("daily_sales_report", func() refire.Task { return &DailyReportTask{} })
	manager.Register("trial_reminder", func() refire.Task { return &TrialReminderTask{} })

	if _, err := manager.Enqueue(ctx, "send_sms",
		&SendSMSTask{To: "555-0100", Message: "welcome aboard"},
		schedule.None(),
	); err != nil {
		log.Println(err)
	}

	for _, region := range []string{"us-east-1", "eu-west-2"} {
		if _, err := manager.Enqueue(ctx, "daily_sales_report",
			&DailyReportTask{Region: region},
			schedule.Static("0 0 * * *"),
		); err != nil {
			log.Println(err)
		}
	}

	if _, err := manager.Enqueue(ctx, "trial_reminder",
		&TrialReminderTask{UserID: 5547, MaxNudges: 5},
		schedule.Dynamic("resolve_schedule"),
	); err != nil {
		log.Println(err)
	}

	fmt.Println("refire scheduler running")
	manager.GracefulExit()
}
