package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"attest/app"
	"attest/domain/assessment"
	"attest/internal/logx"
	"attest/models"
	"attest/ports"
)

// Worker owns the job record through its lifecycle. It marks the record
// Processing, runs the assessment pipeline, and persists either the
// completed report or the failure message. Engine progress flows through
// the board, never into the job row directly.
type Worker struct {
	service  *app.AssessmentService
	repo     ports.JobRepository
	progress *ProgressBoard
	logger   *logx.Logger
}

// NewWorker creates a job worker
func NewWorker(service *app.AssessmentService, repo ports.JobRepository, progress *ProgressBoard, logger *logx.Logger) *Worker {
	if logger == nil {
		logger = logx.NewDefault()
	}
	return &Worker{service: service, repo: repo, progress: progress, logger: logger}
}

// Process runs one job to completion. Intended to be called from a
// goroutine; all failure paths end in a persisted Failed status rather
// than a returned error.
func (w *Worker) Process(ctx context.Context, jobID uuid.UUID, zipBytes []byte) {
	start := time.Now()
	w.logger.Info("[Worker] job %s: processing %d archive bytes", jobID, len(zipBytes))

	if err := w.repo.UpdateStatus(ctx, jobID, models.JobProcessing); err != nil {
		w.logger.Error("[Worker] job %s: failed to mark Processing: %v", jobID, err)
		return
	}

	onProgress := func(p assessment.Progress) {
		w.progress.Set(jobID, p)
		w.logger.Debug("[Worker] job %s: %d/%d controls, current=%s",
			jobID, p.CompletedControls, p.TotalControls, p.CurrentControl)
	}

	outcome, err := w.service.Assess(ctx, zipBytes, onProgress)
	if err != nil {
		w.logger.Error("[Worker] job %s failed: %v", jobID, err)
		if ferr := w.repo.Fail(ctx, jobID, err.Error()); ferr != nil {
			w.logger.Error("[Worker] job %s: failed to persist failure: %v", jobID, ferr)
		}
		w.progress.Clear(jobID)
		return
	}

	result := models.JobResult{
		Report:           outcome.Report,
		Diagnostics:      outcome.Diagnostics,
		TotalFiles:       outcome.TotalFiles,
		TotalControls:    outcome.TotalControls,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	if err := w.repo.Complete(ctx, jobID, result); err != nil {
		w.logger.Error("[Worker] job %s: failed to persist result: %v", jobID, err)
		return
	}
	w.progress.Clear(jobID)
	w.logger.Info("[Worker] job %s completed: %d report rows in %.2fs",
		jobID, len(outcome.Report), time.Since(start).Seconds())
}
