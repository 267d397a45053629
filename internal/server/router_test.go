package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/chunker"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/loader"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/qa"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/session"
	"github.com/cloo-solutions/docqa/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// letterEmbedder maps text to letter frequencies so related chunks score higher.
type letterEmbedder struct{}

func (letterEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[0]++
	return v, nil
}

func (e letterEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.GenerateEmbedding(ctx, text)
	}
	return out, nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return "answered", nil
}

type testStack struct {
	router http.Handler
	worker *jobs.IndexWorker
}

func newTestStack() *testStack {
	m := metrics.New()
	sessions := session.NewManager(qa.NewEngine(echoGenerator{}))
	jobRepo := repository.NewIndexJobRepository()
	docSvc := service.NewDocumentService(
		storage.NewMemoryStore(),
		loader.New(),
		chunker.NewDefault(),
		letterEmbedder{},
		sessions,
		jobRepo,
		service.DocumentServiceConfig{},
	).WithMetrics(m)
	chatSvc := service.NewChatService(sessions).WithMetrics(m)

	return &testStack{
		router: NewRouter(RouterConfig{
			DocumentHandler: handlers.NewDocumentHandler(docSvc),
			SessionHandler:  handlers.NewSessionHandler(chatSvc),
			Metrics:         m,
		}),
		worker: jobs.NewIndexWorker(jobRepo, docSvc),
	}
}

func (s *testStack) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRouter_HealthEndpoint(t *testing.T) {
	stack := newTestStack()

	w := stack.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_AskWithoutDocument(t *testing.T) {
	stack := newTestStack()

	w := stack.do(t, httptest.NewRequest(http.MethodPost, "/session/ask", strings.NewReader(`{"question":"anything?"}`)))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "NO_ACTIVE_DOCUMENT")
}

func TestRouter_UploadProcessAsk(t *testing.T) {
	stack := newTestStack()

	w := stack.do(t, uploadRequest(t, "policy.txt", "Refunds are issued within thirty days.\nShipping is free on all orders."))
	require.Equal(t, http.StatusCreated, w.Code)
	var file handlers.FileResponse
	decodeData(t, w, &file)
	require.NotEmpty(t, file.ID)

	w = stack.do(t, httptest.NewRequest(http.MethodGet, "/documents", nil))
	var list handlers.ListDocumentsResponse
	decodeData(t, w, &list)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "policy.txt", list.Documents[0].Name)

	w = stack.do(t, httptest.NewRequest(http.MethodPost, "/documents/"+file.ID+"/process", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	var job handlers.JobResponse
	decodeData(t, w, &job)
	assert.Equal(t, "pending", job.Status)

	require.NoError(t, stack.worker.ProcessJobs(context.Background()))

	w = stack.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil))
	decodeData(t, w, &job)
	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, 1, job.ChunkCount)

	w = stack.do(t, httptest.NewRequest(http.MethodGet, "/session", nil))
	var status handlers.SessionStatusResponse
	decodeData(t, w, &status)
	assert.True(t, status.Active)
	assert.Equal(t, "policy.txt", status.DocumentName)

	w = stack.do(t, httptest.NewRequest(http.MethodPost, "/session/ask", strings.NewReader(`{"question":"How long do refunds take?"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	var answer handlers.AskResponse
	decodeData(t, w, &answer)
	assert.Equal(t, "answered", answer.Answer)
	assert.Len(t, answer.Sources, 1)

	w = stack.do(t, httptest.NewRequest(http.MethodGet, "/session/history", nil))
	var history handlers.HistoryResponse
	decodeData(t, w, &history)
	assert.Len(t, history.Turns, 2)

	w = stack.do(t, httptest.NewRequest(http.MethodGet, "/session/passages?q=shipping", nil))
	var passages handlers.PassagesResponse
	decodeData(t, w, &passages)
	assert.Len(t, passages.Passages, 1)

	w = stack.do(t, httptest.NewRequest(http.MethodDelete, "/session/history", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = stack.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docqa_http_requests_total")
}

func TestRouter_UploadUnsupportedFormat(t *testing.T) {
	stack := newTestStack()

	w := stack.do(t, uploadRequest(t, "photo.png", "not a document"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router := NewRouter(RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(nil),
		SessionHandler:  handlers.NewSessionHandler(nil),
		MaxBodyBytes:    16,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "big.txt", strings.Repeat("x", 1024)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, domain.ErrCodeUploadTooLarge, body.Code)
}

func TestRouter_UnknownJob(t *testing.T) {
	stack := newTestStack()

	w := stack.do(t, httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
