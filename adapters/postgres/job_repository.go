package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"attest/internal/errors"
	"attest/models"
	"attest/ports"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	uuid          UUID PRIMARY KEY,
	user_id       TEXT NOT NULL,
	user_name     TEXT NOT NULL,
	status        TEXT NOT NULL,
	zip_file_name TEXT NOT NULL DEFAULT '',
	zip_file_size INTEGER NOT NULL DEFAULT 0,
	result        JSONB,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_user_created ON jobs (user_id, created_at DESC);
`

// JobRepositoryImpl implements JobRepository for PostgreSQL
type JobRepositoryImpl struct {
	db *sqlx.DB
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(db *sqlx.DB) ports.JobRepository {
	return &JobRepositoryImpl{db: db}
}

// EnsureSchema creates the jobs table when it does not exist
func (r *JobRepositoryImpl) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, jobsSchema); err != nil {
		return errors.Wrap(err, "failed to ensure jobs schema")
	}
	return nil
}

// Create inserts a new job record
func (r *JobRepositoryImpl) Create(ctx context.Context, job *models.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (uuid, user_id, user_name, status, zip_file_name, zip_file_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, job.UUID, job.UserID, job.UserName, job.Status, job.ZipFileName, job.ZipFileSize, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create job")
	}
	return nil
}

// Get retrieves a job by its UUID
func (r *JobRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, `
		SELECT uuid, user_id, user_name, status, zip_file_name, zip_file_size, result, created_at, updated_at
		FROM jobs
		WHERE uuid = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser returns a user's jobs, newest first
func (r *JobRepositoryImpl) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*models.Job
	err := r.db.SelectContext(ctx, &out, `
		SELECT uuid, user_id, user_name, status, zip_file_name, zip_file_size, result, created_at, updated_at
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus transitions a job's lifecycle state
func (r *JobRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, updated_at = $3 WHERE uuid = $1
	`, id, status, time.Now().UTC())
	return err
}

// Complete marks a job Completed and stores its report
func (r *JobRepositoryImpl) Complete(ctx context.Context, id uuid.UUID, result models.JobResult) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, result = $3, updated_at = $4 WHERE uuid = $1
	`, id, models.JobCompleted, result, time.Now().UTC())
	return err
}

// Fail marks a job Failed with an error message
func (r *JobRepositoryImpl) Fail(ctx context.Context, id uuid.UUID, message string) error {
	result := models.JobResult{Error: message}
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, result = $3, updated_at = $4 WHERE uuid = $1
	`, id, models.JobFailed, result, time.Now().UTC())
	return err
}
