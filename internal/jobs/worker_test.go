package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIndexJobRepository is a mock implementation of IndexJobRepository
type MockIndexJobRepository struct {
	mock.Mock
}

func (m *MockIndexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IndexJob), args.Error(1)
}

func (m *MockIndexJobRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	args := m.Called(ctx, id, chunkCount)
	return args.Error(0)
}

func (m *MockIndexJobRepository) MarkFailed(ctx context.Context, id, code, message string) error {
	args := m.Called(ctx, id, code, message)
	return args.Error(0)
}

// MockIndexService is a mock implementation of IndexService
type MockIndexService struct {
	mock.Mock
}

func (m *MockIndexService) ProcessFile(ctx context.Context, fileID string) (int, error) {
	args := m.Called(ctx, fileID)
	return args.Int(0), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_NotifyRunsImmediately tests that Notify does not wait for the ticker
func TestWorker_NotifyRunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Run(func(args mock.Arguments) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}).Return(nil)

	worker := NewWorker(mockProcessor, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	worker.Notify()
	worker.Notify()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not run after Notify")
	}

	worker.Stop()
	worker.Stop()
}

// TestWorker_ProcessorErrorKeepsRunning tests that a failing run does not stop the loop
func TestWorker_ProcessorErrorKeepsRunning(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("boom"))

	worker := NewWorker(mockProcessor, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	time.Sleep(150 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

// TestIndexWorker_ProcessJobs_NoPendingJobs tests when there are no pending jobs
func TestIndexWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockIndexJobRepository)
	mockService := new(MockIndexService)

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.IndexJob{}, nil)

	worker := NewIndexWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertNotCalled(t, "ProcessFile", mock.Anything, mock.Anything)
}

// TestIndexWorker_ProcessJobs_Success tests successful job processing
func TestIndexWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockIndexJobRepository)
	mockService := new(MockIndexService)

	job := &domain.IndexJob{
		ID:     "job-1",
		FileID: "file-1",
		Status: domain.IndexJobStatusProcessing,
	}

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.IndexJob{job}, nil)
	mockService.On("ProcessFile", mock.Anything, "file-1").Return(3, nil)
	mockRepo.On("MarkCompleted", mock.Anything, "job-1", 3).Return(nil)

	worker := NewIndexWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

// TestIndexWorker_ProcessJobs_FailureRecordsCode tests that a failed build keeps its error code
func TestIndexWorker_ProcessJobs_FailureRecordsCode(t *testing.T) {
	mockRepo := new(MockIndexJobRepository)
	mockService := new(MockIndexService)

	job := &domain.IndexJob{ID: "job-1", FileID: "file-1", Status: domain.IndexJobStatusProcessing}

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.IndexJob{job}, nil)
	mockService.On("ProcessFile", mock.Anything, "file-1").Return(0, domain.ErrEmptyDocument)
	mockRepo.On("MarkFailed", mock.Anything, "job-1", domain.ErrCodeEmptyDocument, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIndexWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertNumberOfCalls(t, "ProcessFile", 1)
}

// TestIndexWorker_ProcessJobs_UntypedFailure tests that untyped errors are recorded as internal
func TestIndexWorker_ProcessJobs_UntypedFailure(t *testing.T) {
	mockRepo := new(MockIndexJobRepository)
	mockService := new(MockIndexService)

	job := &domain.IndexJob{ID: "job-1", FileID: "file-1", Status: domain.IndexJobStatusProcessing}

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.IndexJob{job}, nil)
	mockService.On("ProcessFile", mock.Anything, "file-1").Return(0, errors.New("disk full"))
	mockRepo.On("MarkFailed", mock.Anything, "job-1", domain.ErrCodeInternalError, "disk full").Return(nil)

	worker := NewIndexWorker(mockRepo, mockService)

	assert.NoError(t, worker.ProcessJobs(context.Background()))
	mockRepo.AssertExpectations(t)
}

// TestIndexWorker_ProcessJobs_RepositoryError tests repository error handling
func TestIndexWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockIndexJobRepository)
	mockService := new(MockIndexService)

	mockRepo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return(nil, errors.New("store unavailable"))

	worker := NewIndexWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending jobs")
	mockRepo.AssertExpectations(t)
}
