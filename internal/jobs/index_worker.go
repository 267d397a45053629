package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

// ClaimBatchSize is how many pending jobs one run claims. Builds are
// serialized, so there is rarely more than one.
const ClaimBatchSize = 1

// IndexJobRepository defines the interface for index job persistence
type IndexJobRepository interface {
	// ClaimPending moves pending jobs to processing and returns them
	ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error)

	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id, code, message string) error
}

// IndexService builds the session index from a stored file
type IndexService interface {
	ProcessFile(ctx context.Context, fileID string) (int, error)
}

// IndexWorker processes index jobs. A failed build is final; the user
// decides whether to process the file again.
type IndexWorker struct {
	repo    IndexJobRepository
	service IndexService
}

// NewIndexWorker creates a new IndexWorker instance
func NewIndexWorker(repo IndexJobRepository, service IndexService) *IndexWorker {
	return &IndexWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IndexWorker) processJob(ctx context.Context, job *domain.IndexJob) error {
	ctx, span := telemetry.StartSpan(ctx, "jobs.index.Process", telemetry.SpanAttributes{
		JobID:     job.ID,
		FileID:    job.FileID,
		Operation: "index",
	})
	defer span.End()

	log.Printf("Processing job %s for file %s", job.ID, job.FileID)

	chunkCount, err := w.service.ProcessFile(ctx, job.FileID)
	if err != nil {
		span.SetError(err)
		log.Printf("Job %s failed: %v", job.ID, err)
		code := domain.CodeOf(err)
		if code == "" {
			code = domain.ErrCodeInternalError
		}
		if err := w.repo.MarkFailed(ctx, job.ID, code, err.Error()); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if err := w.repo.MarkCompleted(ctx, job.ID, chunkCount); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully (%d chunks)", job.ID, chunkCount)
	return nil
}
