package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// DefaultJobRetention is how many finished jobs are kept for status lookups.
const DefaultJobRetention = 100

// IndexJobRepository keeps index jobs in memory. Jobs do not outlive the
// process, and neither does the index they build.
type IndexJobRepository struct {
	mu        sync.Mutex
	jobs      map[string]*domain.IndexJob
	retention int
	now       func() time.Time
}

func NewIndexJobRepository() *IndexJobRepository {
	return &IndexJobRepository{
		jobs:      make(map[string]*domain.IndexJob),
		retention: DefaultJobRetention,
		now:       time.Now,
	}
}

// CreateExclusive stores job unless another job is still pending or
// processing, in which case it returns domain.ErrConcurrentBuildRejected.
func (r *IndexJobRepository) CreateExclusive(ctx context.Context, job *domain.IndexJob) error {
	if err := domain.ValidateIndexJob(job); err != nil {
		return domain.ErrMissingRequiredField.WithCause(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.jobs {
		if existing.InFlight() {
			return domain.ErrConcurrentBuildRejected
		}
	}

	clone := *job
	r.jobs[job.ID] = &clone
	r.prune()
	return nil
}

func (r *IndexJobRepository) GetByID(ctx context.Context, id string) (*domain.IndexJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

// ClaimPending moves up to limit pending jobs to processing, oldest first,
// and returns them.
func (r *IndexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*domain.IndexJob
	for _, job := range r.jobs {
		if job.Status == domain.IndexJobStatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]*domain.IndexJob, 0, len(pending))
	for _, job := range pending {
		job.Status = domain.IndexJobStatusProcessing
		job.Error = ""
		job.ErrorCode = ""
		clone := *job
		claimed = append(claimed, &clone)
	}
	return claimed, nil
}

// MarkCompleted records a successful build.
func (r *IndexJobRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	return r.finish(id, func(job *domain.IndexJob) {
		job.Status = domain.IndexJobStatusCompleted
		job.ChunkCount = chunkCount
	})
}

// MarkFailed records a failed build with its error code.
func (r *IndexJobRepository) MarkFailed(ctx context.Context, id, code, message string) error {
	return r.finish(id, func(job *domain.IndexJob) {
		job.Status = domain.IndexJobStatusFailed
		job.ErrorCode = code
		job.Error = message
	})
}

func (r *IndexJobRepository) finish(id string, apply func(*domain.IndexJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	apply(job)
	processedAt := r.now().UTC()
	job.ProcessedAt = &processedAt
	r.prune()
	return nil
}

// prune drops the oldest finished jobs beyond the retention limit.
func (r *IndexJobRepository) prune() {
	var finished []*domain.IndexJob
	for _, job := range r.jobs {
		if !job.InFlight() {
			finished = append(finished, job)
		}
	}
	if len(finished) <= r.retention {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})
	for _, job := range finished[:len(finished)-r.retention] {
		delete(r.jobs, job.ID)
	}
}
