package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"refire/internal/models"
	"refire/internal/recur"
	"refire/internal/schedule"
	"refire/internal/state"
)

const jobColumns = `id, name, payload, schedule_kind, schedule_spec, schedule_hook,
	       status, attempts, last_error, run_at,
	       locked_by, locked_at, created_at, updated_at`

// PostgresJobStore persists job rows in a single schema-qualified table.
// Reschedules mutate rows in place; only one-shot completions and dynamic
// "stop recurring" delete them.
type PostgresJobStore struct {
	db *sql.DB
	// lockTTL is how long a processing row stays invisible before the
	// due-jobs query reclaims it. Rows with an expired lock are considered
	// abandoned by a dead worker.
	lockTTL time.Duration
}

func NewPostgresJobStore(db *sql.DB, lockTTL time.Duration) *PostgresJobStore {
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	return &PostgresJobStore{db: db, lockTTL: lockTTL}
}

func (r *PostgresJobStore) Insert(ctx context.Context, job *models.Job) (int64, error) {
	query := `
		INSERT INTO refire_schema.jobs
			(name, payload, schedule_kind, schedule_spec, schedule_hook, status, attempts, run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, now(), now())
		RETURNING id
	`

	var jobID int64
	err := r.db.QueryRowContext(ctx, query,
		job.Name, job.Payload,
		string(job.Schedule.Kind), job.Schedule.Spec, job.Schedule.Hook,
		state.StatusQueued, job.RunAt,
	).Scan(&jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}

	return jobID, nil
}

func (r *PostgresJobStore) FindByID(ctx context.Context, jobID int64) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM refire_schema.jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to find job %d: %w", jobID, err)
	}
	return job, nil
}

func (r *PostgresJobStore) RemoveByID(ctx context.Context, jobID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refire_schema.jobs WHERE id = $1`, jobID)
	return err
}

func (r *PostgresJobStore) FetchDueJobs(ctx context.Context, page int, pageSize int, now time.Time) (*models.PaginationResult[models.Job], error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	// Rows stuck in 'processing' past the lock TTL are considered abandoned
	// and become due again. The per-row LockJob conditional UPDATE keeps a
	// reclaimed row from being claimed twice.
	where := `
		run_at <= $1
		AND (
			status = 'queued'
			OR status = 'retrying'
			OR (status = 'processing' AND locked_at < $1 - $2::interval)
		)
	`

	ttl := fmt.Sprintf("%d seconds", int(r.lockTTL.Seconds()))

	countQuery := `SELECT COUNT(*) FROM refire_schema.jobs WHERE ` + where
	selectQuery := `SELECT ` + jobColumns + `
		FROM refire_schema.jobs
		WHERE ` + where + `
		ORDER BY run_at ASC
		LIMIT $3 OFFSET $4`

	var totalItems int
	if err := r.db.QueryRowContext(ctx, countQuery, now, ttl).Scan(&totalItems); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectQuery, now, ttl, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	return paginate(jobs, totalItems, page, pageSize), nil
}

func (r *PostgresJobStore) LockJob(ctx context.Context, jobID int64, lockedBy string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refire_schema.jobs
		SET locked_at = now(),
		    locked_by = $1,
		    status = $2,
		    updated_at = now()
		WHERE id = $3 AND (status = $4 OR status = $5)
	`, lockedBy, state.StatusProcessing, jobID, state.StatusQueued, state.StatusRetrying)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *PostgresJobStore) ApplyDecision(ctx context.Context, jobID int64, decision recur.Decision) error {
	switch decision.Action {
	case recur.ActionReschedule:
		return r.updateInPlace(ctx, jobID, decision, state.StatusQueued)
	case recur.ActionRetryLater:
		return r.updateInPlace(ctx, jobID, decision, state.StatusRetrying)
	case recur.ActionDelete:
		return r.RemoveByID(ctx, jobID)
	case recur.ActionPermanentlyFailed:
		_, err := r.db.ExecContext(ctx, `
			UPDATE refire_schema.jobs
			SET status = $1,
			    attempts = $2,
			    last_error = $3,
			    locked_by = NULL,
			    locked_at = NULL,
			    updated_at = now()
			WHERE id = $4
		`, state.StatusDead, decision.Attempts, decision.LastError, jobID)
		return err
	default:
		return fmt.Errorf("unknown decision action: %s", decision.Action)
	}
}

// updateInPlace mutates the row for another cycle: new run_at, attempt
// count and last_error, lock cleared. id, created_at and the schedule
// columns are untouched.
func (r *PostgresJobStore) updateInPlace(ctx context.Context, jobID int64, decision recur.Decision, status state.JobStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refire_schema.jobs
		SET status = $1,
		    attempts = $2,
		    last_error = $3,
		    run_at = $4,
		    locked_by = NULL,
		    locked_at = NULL,
		    updated_at = now()
		WHERE id = $5
	`, status, decision.Attempts, decision.LastError, decision.RunAt, jobID)
	return err
}

func (r *PostgresJobStore) UnlockStaleJobs(ctx context.Context, timeout time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refire_schema.jobs
		SET status = $1,
		    locked_by = NULL,
		    locked_at = NULL,
		    updated_at = now()
		WHERE status = $2 AND locked_at <= now() - $3::interval
	`, state.StatusQueued, state.StatusProcessing, fmt.Sprintf("%d seconds", int(timeout.Seconds())))
	return err
}

func (r *PostgresJobStore) GetAll(ctx context.Context, page int, pageSize int, status state.JobStatus) (*models.PaginationResult[models.Job], error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	where := "TRUE"
	var args []interface{}
	argIndex := 1
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	countQuery := `SELECT COUNT(*) FROM refire_schema.jobs WHERE ` + where
	selectQuery := fmt.Sprintf(`SELECT `+jobColumns+`
		FROM refire_schema.jobs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argIndex, argIndex+1)

	var totalItems int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalItems); err != nil {
		return nil, err
	}

	args = append(args, pageSize, offset)
	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	return paginate(jobs, totalItems, page, pageSize), nil
}

func (r *PostgresJobStore) CountJobsGroupedByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) AS count
		FROM refire_schema.jobs
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[state.JobStatus]int)
	for rows.Next() {
		var status state.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}

	for _, status := range state.AllStatuses {
		if _, ok := result[status]; !ok {
			result[status] = 0
		}
	}

	return result, rows.Err()
}

func (r *PostgresJobStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var kind, spec, hook string
	err := row.Scan(
		&job.ID, &job.Name, &job.Payload, &kind, &spec, &hook,
		&job.Status, &job.Attempts, &job.LastError, &job.RunAt,
		&job.LockedBy, &job.LockedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Schedule = schedule.Expression{Kind: schedule.Kind(kind), Spec: spec, Hook: hook}
	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]models.Job, error) {
	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			log.Println("scan error:", err)
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func paginate(jobs []models.Job, totalItems, page, pageSize int) *models.PaginationResult[models.Job] {
	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))
	return &models.PaginationResult[models.Job]{
		Items:           jobs,
		TotalItems:      totalItems,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}
