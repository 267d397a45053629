package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/google/uuid"
)

type memoryObject struct {
	file domain.StoredFile
	data []byte
}

// MemoryStore is a Store held in process memory, for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

func (m *MemoryStore) List(ctx context.Context) ([]domain.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]domain.StoredFile, 0, len(m.objects))
	for _, obj := range m.objects {
		files = append(files, obj.file)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModifiedTime.Equal(files[j].ModifiedTime) {
			return files[i].ModifiedTime.After(files[j].ModifiedTime)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (m *MemoryStore) Stat(ctx context.Context, id string) (domain.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[id]
	if !ok {
		return domain.StoredFile{}, domain.ErrFileNotFound
	}
	return obj.file, nil
}

func (m *MemoryStore) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[id]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStore) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (domain.StoredFile, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.StoredFile{}, domain.ErrMissingRequiredField.WithCause(err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return domain.StoredFile{}, domain.ErrStore.WithCause(fmt.Errorf("failed to read upload: %w", err))
	}

	file := domain.StoredFile{
		ID:           uuid.New().String(),
		Name:         name,
		MimeType:     mimeTypeFor(name, contentType),
		Size:         int64(len(data)),
		ModifiedTime: m.now().UTC(),
	}

	m.mu.Lock()
	m.objects[file.ID] = memoryObject{file: file, data: data}
	m.mu.Unlock()

	return file, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[id]; !ok {
		return domain.ErrFileNotFound
	}
	delete(m.objects, id)
	return nil
}
