package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"patwa/internal/models"
)

// JobRepository is the data access layer for the job queue.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a JobRepository.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, source_id, type, status, priority, progress, current_step, retry_count, error, created_at, started_at, completed_at`

func scanJob(row scanner) (*models.ProcessingJob, error) {
	var j models.ProcessingJob
	var started, completed sql.NullTime
	err := row.Scan(&j.ID, &j.SourceID, &j.Type, &j.Status, &j.Priority, &j.Progress, &j.CurrentStep,
		&j.RetryCount, &j.Error, &j.CreatedAt, &started, &completed)
	if err != nil {
		return nil, err
	}
	j.StartedAt = nullTime(started)
	j.CompletedAt = nullTime(completed)
	return &j, nil
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]models.ProcessingJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.ProcessingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// Create queues a job. Empty status becomes queued.
func (r *JobRepository) Create(ctx context.Context, job *models.ProcessingJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = now()
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceID, job.Type, job.Status, job.Priority, job.Progress, job.CurrentStep,
		job.RetryCount, job.Error, job.CreatedAt, toNullTime(job.StartedAt), toNullTime(job.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID returns ErrNotFound for unknown IDs.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// GetNextQueued returns the queued job with the lowest priority value,
// oldest first. It returns nil when the queue is empty.
func (r *JobRepository) GetNextQueued(ctx context.Context) (*models.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs
		 WHERE status = ?
		 ORDER BY priority ASC, created_at ASC, rowid ASC LIMIT 1`, models.JobStatusQueued)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Start marks a job running.
func (r *JobRepository) Start(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, started_at = ?, progress = 0, current_step = '' WHERE id = ?`,
		models.JobStatusRunning, now(), id)
	return err
}

// UpdateProgressWithStep records progress and the current step.
func (r *JobRepository) UpdateProgressWithStep(ctx context.Context, id string, progress int, step string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET progress = ?, current_step = ? WHERE id = ?`, progress, step, id)
	return err
}

// Complete marks a job completed.
func (r *JobRepository) Complete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, progress = 100, error = '', completed_at = ? WHERE id = ?`,
		models.JobStatusCompleted, now(), id)
	return err
}

// Fail marks a job failed.
func (r *JobRepository) Fail(ctx context.Context, id string, errorMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		models.JobStatusFailed, errorMsg, now(), id)
	return err
}

// Retry puts a job back in the queue and counts the attempt.
func (r *JobRepository) Retry(ctx context.Context, id string, errorMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs
		 SET status = ?, retry_count = retry_count + 1, error = ?, started_at = NULL, progress = 0, current_step = ''
		 WHERE id = ?`,
		models.JobStatusQueued, errorMsg, id)
	return err
}

// ResetRunning requeues jobs left running by a crashed process.
func (r *JobRepository) ResetRunning(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, started_at = NULL WHERE status = ?`,
		models.JobStatusQueued, models.JobStatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetBySourceID lists the jobs of a source, newest first.
func (r *JobRepository) GetBySourceID(ctx context.Context, sourceID string) ([]models.ProcessingJob, error) {
	return r.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs WHERE source_id = ? ORDER BY created_at DESC, rowid DESC`, sourceID)
}

// ListByStatus lists jobs with a status, newest first.
func (r *JobRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.ProcessingJob, error) {
	return r.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs WHERE status = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		status, limitOr(limit, 50))
}

// ListRecent lists jobs, newest first.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]models.ProcessingJob, error) {
	return r.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limitOr(limit, 50))
}

// Delete removes a job.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM processing_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// CleanupCompleted deletes completed jobs older than the given number of days.
func (r *JobRepository) CleanupCompleted(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := now().AddDate(0, 0, -olderThanDays)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM processing_jobs WHERE status = ? AND completed_at < ?`,
		models.JobStatusCompleted, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus returns the number of jobs per status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM processing_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{
		models.JobStatusQueued:    0,
		models.JobStatusRunning:   0,
		models.JobStatusCompleted: 0,
		models.JobStatusFailed:    0,
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Elapsed reports how long a job has run, or ran.
func Elapsed(j *models.ProcessingJob) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return end.Sub(*j.StartedAt)
}
