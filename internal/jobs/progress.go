package jobs

import (
	"sync"

	"github.com/google/uuid"

	"attest/domain/assessment"
)

// ProgressBoard holds the latest progress snapshot per running job. The
// worker is the only writer; the status endpoint reads. Snapshots for
// finished jobs are evicted once the durable record carries the result.
type ProgressBoard struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]assessment.Progress
}

// NewProgressBoard creates an empty progress board
func NewProgressBoard() *ProgressBoard {
	return &ProgressBoard{snapshots: make(map[uuid.UUID]assessment.Progress)}
}

// Set records the latest snapshot for a job
func (b *ProgressBoard) Set(jobID uuid.UUID, p assessment.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[jobID] = p
}

// Get returns the latest snapshot for a job, if one exists
func (b *ProgressBoard) Get(jobID uuid.UUID) (assessment.Progress, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.snapshots[jobID]
	return p, ok
}

// Clear evicts a finished job's snapshot
func (b *ProgressBoard) Clear(jobID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.snapshots, jobID)
}
