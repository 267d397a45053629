package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/google/uuid"
)

// Store is the remote file store documents are uploaded to and processed
// from. Every store is bound to one container (a key prefix); file ids are
// unique within it.
type Store interface {
	List(ctx context.Context) ([]domain.StoredFile, error)
	Stat(ctx context.Context, id string) (domain.StoredFile, error)
	Download(ctx context.Context, id string) (io.ReadCloser, error)
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (domain.StoredFile, error)
	Delete(ctx context.Context, id string) error
}

var (
	errInvalidName = errors.New("file name is empty")
	errInvalidID   = errors.New("file id is not valid")
)

// objectKey lays files out as <container>/<id>/<name>.
func objectKey(container, id, name string) string {
	return path.Join(container, id, name)
}

func containerPrefix(container string) string {
	return strings.TrimSuffix(container, "/") + "/"
}

// parseKey splits a key under container into the file id and name. Keys that
// do not follow the layout are reported as not ok.
func parseKey(container, key string) (id, name string, ok bool) {
	rest := strings.TrimPrefix(key, containerPrefix(container))
	if rest == key {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", false
	}
	if _, err := uuid.Parse(parts[0]); err != nil {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func cleanName(name string) (string, error) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "", errInvalidName
	}
	return name, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errInvalidID
	}
	return nil
}

// mimeTypeFor guesses a MIME type from the name when the store has none.
func mimeTypeFor(name, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if format, ok := domain.ParseFormat(name, ""); ok {
		return format.MimeType()
	}
	return "application/octet-stream"
}
