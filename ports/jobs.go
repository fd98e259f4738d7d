package ports

import (
	"context"

	"github.com/google/uuid"

	"attest/models"
)

// JobRepository persists assessment jobs and their state transitions
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	Complete(ctx context.Context, id uuid.UUID, result models.JobResult) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
}
