//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/chunker"
	"github.com/cloo-solutions/docqa/internal/cli/client"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/loader"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/qa"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/server"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/session"
	"github.com/cloo-solutions/docqa/internal/storage"
	"github.com/cloo-solutions/docqa/internal/testutil"
	"github.com/stretchr/testify/require"
)

// E2ETestEnv holds the server, its bucket and a client pointed at it
type E2ETestEnv struct {
	T       *testing.T
	Ctx     context.Context
	RustFSC *testutil.RustFSContainer
	Store   *storage.S3Store
	Worker  *jobs.Worker
	API     *client.APIClient
	cancel  context.CancelFunc
	srv     *httptest.Server
}

// SetupE2EEnv starts RustFS and a full server with stub model clients
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	testutil.SkipIfShort(t)
	ctx, cancel := context.WithCancel(context.Background())

	rc := testutil.NewRustFSContainer(ctx, t)

	store, err := storage.NewS3Store(ctx, storage.S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "docqa-e2e",
		Container:       "documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	m := metrics.New()
	sessions := session.NewManager(qa.NewEngine(quoteGenerator{}))
	jobRepo := repository.NewIndexJobRepository()
	documentSvc := service.NewDocumentService(
		store,
		loader.New(),
		chunker.NewDefault(),
		wordEmbedder{},
		sessions,
		jobRepo,
		service.DocumentServiceConfig{TempDir: t.TempDir()},
	).WithMetrics(m)
	chatSvc := service.NewChatService(sessions).WithMetrics(m)

	worker := jobs.NewWorker(jobs.NewIndexWorker(jobRepo, documentSvc), 50*time.Millisecond)
	documentSvc.WithNotifier(worker)
	go worker.Start(ctx)

	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(documentSvc),
		SessionHandler:  handlers.NewSessionHandler(chatSvc),
		Metrics:         m,
	}))

	env := &E2ETestEnv{
		T:       t,
		Ctx:     ctx,
		RustFSC: rc,
		Store:   store,
		Worker:  worker,
		API:     client.NewAPIClientWithConfig(srv.URL),
		cancel:  cancel,
		srv:     srv,
	}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	e.srv.Close()
	e.Worker.Stop()
	e.cancel()
	_ = e.RustFSC.Terminate(context.Background())
}

// WaitForJob polls a job until it completes or fails
func (e *E2ETestEnv) WaitForJob(jobID string) client.Job {
	e.T.Helper()
	var job client.Job
	require.Eventually(e.T, func() bool {
		resp, err := e.API.Get("/jobs/" + jobID)
		require.NoError(e.T, err)
		require.NoError(e.T, json.Unmarshal(resp.Data, &job))
		return job.Done()
	}, 30*time.Second, 100*time.Millisecond)
	return job
}

// Decode unmarshals the data envelope of a response
func Decode(t *testing.T, resp *client.APIResponse, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// wordEmbedder hashes words into a small bag-of-words vector.
type wordEmbedder struct{}

const embedDims = 64

func (wordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, embedDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var h uint32 = 2166136261
		for i := 0; i < len(word); i++ {
			h ^= uint32(word[i])
			h *= 16777619
		}
		v[h%embedDims]++
	}
	v[0] += 0.001
	return v, nil
}

func (e wordEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.GenerateEmbedding(ctx, text)
	}
	return out, nil
}

// quoteGenerator answers with the first context line of the prompt.
type quoteGenerator struct{}

func (quoteGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	_, rest, ok := strings.Cut(prompt, "Context:\n")
	if !ok {
		return "I don't know.", nil
	}
	line, _, _ := strings.Cut(rest, "\n")
	return line, nil
}
