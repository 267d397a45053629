package domain

import (
	"fmt"
	"time"
)

// IndexJobStatus represents the status of an index build job
type IndexJobStatus string

const (
	IndexJobStatusPending    IndexJobStatus = "pending"
	IndexJobStatusProcessing IndexJobStatus = "processing"
	IndexJobStatusCompleted  IndexJobStatus = "completed"
	IndexJobStatusFailed     IndexJobStatus = "failed"
)

// IndexJob represents an async request to build the session index from a
// stored file.
type IndexJob struct {
	ID          string
	FileID      string
	Status      IndexJobStatus
	Error       string
	ErrorCode   string
	ChunkCount  int
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIndexJob creates a new pending IndexJob
func NewIndexJob(id, fileID string, createdAt time.Time) *IndexJob {
	return &IndexJob{
		ID:        id,
		FileID:    fileID,
		Status:    IndexJobStatusPending,
		CreatedAt: createdAt,
	}
}

// InFlight reports whether the job has not reached a terminal state.
func (j *IndexJob) InFlight() bool {
	return j.Status == IndexJobStatusPending || j.Status == IndexJobStatusProcessing
}

// ValidateIndexJob validates an IndexJob instance
func ValidateIndexJob(j *IndexJob) error {
	if j == nil {
		return fmt.Errorf("index job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("index job ID is required")
	}

	if j.FileID == "" {
		return fmt.Errorf("index job FileID is required")
	}

	if !isValidIndexJobStatus(j.Status) {
		return fmt.Errorf("index job Status is invalid: %s", j.Status)
	}

	if j.ChunkCount < 0 {
		return fmt.Errorf("index job ChunkCount cannot be negative")
	}

	return nil
}

func isValidIndexJobStatus(s IndexJobStatus) bool {
	switch s {
	case IndexJobStatusPending, IndexJobStatusProcessing,
		IndexJobStatusCompleted, IndexJobStatusFailed:
		return true
	}
	return false
}
