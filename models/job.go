package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attest/domain/assessment"
)

// JobStatus is the lifecycle state of an assessment job
type JobStatus string

const (
	JobPending    JobStatus = "Pending"
	JobProcessing JobStatus = "Processing"
	JobCompleted  JobStatus = "Completed"
	JobFailed     JobStatus = "Failed"
)

// JobResult holds the durable outcome of a completed or failed job
type JobResult struct {
	Report           []assessment.ReportRow `json:"report,omitempty"`
	Diagnostics      []string               `json:"diagnostics,omitempty"`
	Error            string                 `json:"error,omitempty"`
	TotalFiles       int                    `json:"totalFiles,omitempty"`
	TotalControls    int                    `json:"totalControls,omitempty"`
	ProcessingTimeMS int64                  `json:"processingTimeMs,omitempty"`
}

// Value implements driver.Valuer so JobResult persists as JSONB
func (r JobResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB round-trips
func (r *JobResult) Scan(src interface{}) error {
	if src == nil {
		*r = JobResult{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported JobResult source type %T", src)
	}
}

// Job is one assessment run over an uploaded archive. The job record is
// owned exclusively by the orchestrator; the evaluation engine reports
// progress through a callback and never writes this state.
type Job struct {
	UUID        uuid.UUID  `db:"uuid" json:"uuid"`
	UserID      string     `db:"user_id" json:"userId"`
	UserName    string     `db:"user_name" json:"userName"`
	Status      JobStatus  `db:"status" json:"status"`
	ZipFileName string     `db:"zip_file_name" json:"zipFileName"`
	ZipFileSize int        `db:"zip_file_size" json:"zipFileSize"`
	Result      *JobResult `db:"result" json:"result,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewJob creates a pending job for an uploaded archive
func NewJob(userID, userName, zipFileName string, zipFileSize int) *Job {
	now := time.Now().UTC()
	return &Job{
		UUID:        uuid.New(),
		UserID:      userID,
		UserName:    userName,
		Status:      JobPending,
		ZipFileName: zipFileName,
		ZipFileSize: zipFileSize,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
