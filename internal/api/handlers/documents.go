package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

type DocumentService interface {
	List(ctx context.Context) ([]domain.StoredFile, error)
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (domain.StoredFile, error)
	Delete(ctx context.Context, id string) error
	RequestProcessing(ctx context.Context, fileID string) (*domain.IndexJob, error)
	GetJob(ctx context.Context, id string) (*domain.IndexJob, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type ListDocumentsResponse struct {
	Documents []FileResponse `json:"documents"`
	Cursor    string         `json:"cursor,omitempty"`
	HasMore   bool           `json:"has_more"`
}

// List returns documents newest first. Without ?limit every document is returned.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	files, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	page, err := pagination.Paginate(files, r.URL.Query().Get("cursor"), limit, func(f domain.StoredFile) (string, time.Time) {
		return f.ID, f.ModifiedTime
	})
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := ListDocumentsResponse{
		Documents: make([]FileResponse, len(page.Items)),
		Cursor:    page.Cursor,
		HasMore:   page.HasMore,
	}
	for i, f := range page.Items {
		resp.Documents[i] = fileToResponse(f)
	}
	api.Success(w, http.StatusOK, resp)
}

// Upload accepts a multipart form with the document in the "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, domain.ErrUploadTooLarge.WithCause(fmt.Errorf("limit is %d bytes", maxErr.Limit)))
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	stored, err := h.svc.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, fileToResponse(stored))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Process queues an index build for the document and returns the job.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.RequestProcessing(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}
