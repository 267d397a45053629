package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/index"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/telemetry"
	"github.com/google/uuid"
)

// FileStore is the remote file store
type FileStore interface {
	List(ctx context.Context) ([]domain.StoredFile, error)
	Stat(ctx context.Context, id string) (domain.StoredFile, error)
	Download(ctx context.Context, id string) (io.ReadCloser, error)
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (domain.StoredFile, error)
	Delete(ctx context.Context, id string) error
}

// DocumentLoader extracts text from a downloaded document
type DocumentLoader interface {
	Load(ctx context.Context, doc domain.RawDocument) (string, error)
}

// TextSplitter splits extracted text into chunks
type TextSplitter interface {
	Split(documentID, text string) []domain.TextChunk
}

// SessionInstaller receives finished indexes
type SessionInstaller interface {
	BeginBuild() (func(), error)
	Install(documentID, documentName string, idx *index.Index)
}

// IndexJobRepository defines the job persistence used by DocumentService
type IndexJobRepository interface {
	CreateExclusive(ctx context.Context, job *domain.IndexJob) error
	GetByID(ctx context.Context, id string) (*domain.IndexJob, error)
}

// JobNotifier wakes the worker when a job is queued
type JobNotifier interface {
	Notify()
}

type DocumentServiceConfig struct {
	EmbedBatchSize int
	TempDir        string
}

// DocumentService manages stored files and turns one of them into the
// session's index.
type DocumentService struct {
	store    FileStore
	loader   DocumentLoader
	splitter TextSplitter
	embedder index.Embedder
	sessions SessionInstaller
	jobs     IndexJobRepository
	notifier JobNotifier
	metrics  *metrics.Metrics
	cfg      DocumentServiceConfig
}

func NewDocumentService(
	store FileStore,
	loader DocumentLoader,
	splitter TextSplitter,
	embedder index.Embedder,
	sessions SessionInstaller,
	jobs IndexJobRepository,
	cfg DocumentServiceConfig,
) *DocumentService {
	return &DocumentService{
		store:    store,
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		sessions: sessions,
		jobs:     jobs,
		cfg:      cfg,
	}
}

// WithMetrics attaches Prometheus collectors.
func (s *DocumentService) WithMetrics(m *metrics.Metrics) *DocumentService {
	s.metrics = m
	return s
}

// WithNotifier sets who gets woken when a job is queued.
func (s *DocumentService) WithNotifier(n JobNotifier) *DocumentService {
	s.notifier = n
	return s
}

// List returns the stored files that can be processed.
func (s *DocumentService) List(ctx context.Context) ([]domain.StoredFile, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	supported := make([]domain.StoredFile, 0, len(files))
	for _, f := range files {
		if f.Supported() {
			supported = append(supported, f)
		}
	}
	return supported, nil
}

// Upload stores a new document. Only supported formats are accepted.
func (s *DocumentService) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (domain.StoredFile, error) {
	if name == "" {
		return domain.StoredFile{}, domain.ErrMissingRequiredField.WithCause(fmt.Errorf("file name"))
	}
	format, ok := domain.ParseFormat(name, contentType)
	if !ok {
		return domain.StoredFile{}, domain.ErrUnsupportedFormat.WithCause(fmt.Errorf("%s (%s)", name, contentType))
	}

	file, err := s.store.Upload(ctx, name, format.MimeType(), r, size)
	if err != nil {
		return domain.StoredFile{}, err
	}

	log.Printf("Uploaded %s as %s (%d bytes)", file.Name, file.ID, file.Size)
	return file, nil
}

// Delete removes a stored document.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Deleted file %s", id)
	return nil
}

// RequestProcessing queues an index build for fileID. It fails with
// domain.ErrConcurrentBuildRejected while another build is queued or running.
func (s *DocumentService) RequestProcessing(ctx context.Context, fileID string) (*domain.IndexJob, error) {
	file, err := s.store.Stat(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !file.Supported() {
		return nil, domain.ErrUnsupportedFormat.WithCause(fmt.Errorf("%s (%s)", file.Name, file.MimeType))
	}

	job := domain.NewIndexJob(uuid.New().String(), file.ID, time.Now().UTC())
	if err := s.jobs.CreateExclusive(ctx, job); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify()
	}

	log.Printf("Queued index job %s for file %s", job.ID, file.ID)
	return job, nil
}

// GetJob returns an index job by id.
func (s *DocumentService) GetJob(ctx context.Context, id string) (*domain.IndexJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// ProcessFile downloads, extracts, chunks and indexes fileID, then installs
// the index in the session. Nothing is installed unless every step succeeds.
// It returns the number of chunks indexed.
func (s *DocumentService) ProcessFile(ctx context.Context, fileID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.ProcessFile", telemetry.SpanAttributes{
		FileID:    fileID,
		Operation: "process",
	})
	defer span.End()

	started := time.Now()
	chunkCount, err := s.processFile(ctx, fileID)
	s.metrics.ObserveBuild(started, chunkCount, domain.CodeOf(err))
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	span.SetData("chunk_count", chunkCount)
	return chunkCount, nil
}

func (s *DocumentService) processFile(ctx context.Context, fileID string) (int, error) {
	release, err := s.sessions.BeginBuild()
	if err != nil {
		return 0, err
	}
	defer release()

	file, err := s.store.Stat(ctx, fileID)
	if err != nil {
		return 0, err
	}

	format, ok := domain.ParseFormat(file.Name, file.MimeType)
	if !ok {
		return 0, domain.ErrUnsupportedFormat.WithCause(fmt.Errorf("%s (%s)", file.Name, file.MimeType))
	}

	path, cleanup, err := s.download(ctx, file)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	text, err := s.loader.Load(ctx, domain.RawDocument{
		ID:     file.ID,
		Name:   file.Name,
		Format: format,
		Path:   path,
	})
	if err != nil {
		return 0, err
	}

	chunks := s.splitter.Split(file.ID, text)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyDocument.WithCause(fmt.Errorf("%s", file.Name))
	}
	telemetry.AddBreadcrumb(ctx, "index", fmt.Sprintf("split %s into %d chunks", file.Name, len(chunks)))

	idx, err := index.Build(ctx, s.embedder, chunks, index.Options{BatchSize: s.cfg.EmbedBatchSize})
	if err != nil {
		return 0, err
	}

	s.sessions.Install(file.ID, file.Name, idx)
	log.Printf("Indexed %s (%s): %d chunks", file.Name, file.ID, idx.Len())
	return idx.Len(), nil
}

// download copies the file into a temp file. cleanup removes it and is safe
// to call on every exit path.
func (s *DocumentService) download(ctx context.Context, file domain.StoredFile) (string, func(), error) {
	rc, err := s.store.Download(ctx, file.ID)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(s.cfg.TempDir, "docqa-*"+filepath.Ext(file.Name))
	if err != nil {
		return "", nil, domain.ErrIngestion.WithCause(fmt.Errorf("failed to create temp file: %w", err))
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove temp file %s: %v", tmp.Name(), err)
		}
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, domain.ErrStore.WithCause(fmt.Errorf("failed to download %s: %w", file.Name, err))
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, domain.ErrIngestion.WithCause(fmt.Errorf("failed to write temp file: %w", err))
	}

	return tmp.Name(), cleanup, nil
}
