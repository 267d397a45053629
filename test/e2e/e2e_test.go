//go:build e2e

package e2e

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/docqa/internal/cli/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func upload(t *testing.T, env *E2ETestEnv, name, content string) client.Document {
	t.Helper()
	resp, err := env.API.UploadFile("/documents", writeFile(t, name, content))
	require.NoError(t, err)
	var doc client.Document
	Decode(t, resp, &doc)
	return doc
}

func process(t *testing.T, env *E2ETestEnv, id string) client.Job {
	t.Helper()
	resp, err := env.API.Post("/documents/"+id+"/process", nil)
	require.NoError(t, err)
	var job client.Job
	Decode(t, resp, &job)
	return env.WaitForJob(job.ID)
}

func TestE2E_DocumentQuestionAnswering(t *testing.T) {
	env := SetupE2EEnv(t)

	policy := upload(t, env, "policy.txt",
		"Refunds are issued within thirty days of purchase.\n"+
			strings.Repeat("Shipping is free for orders over fifty dollars. ", 40))

	resp, err := env.API.Get("/documents")
	require.NoError(t, err)
	var list client.DocumentList
	Decode(t, resp, &list)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "policy.txt", list.Documents[0].Name)
	assert.Equal(t, "text/plain", list.Documents[0].MimeType)

	// Asking before any build is rejected and records nothing.
	_, err = env.API.Post("/session/ask", client.AskRequest{Question: "refunds?"})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "NO_ACTIVE_DOCUMENT", apiErr.Code)

	job := process(t, env, policy.ID)
	require.Equal(t, "completed", job.Status, job.Error)
	assert.Greater(t, job.ChunkCount, 1)

	resp, err = env.API.Post("/session/ask", client.AskRequest{Question: "When are refunds issued?"})
	require.NoError(t, err)
	var answer client.Answer
	Decode(t, resp, &answer)
	assert.Contains(t, answer.Answer, "Refunds are issued within thirty days")
	assert.NotEmpty(t, answer.Sources)

	resp, err = env.API.Get("/session/passages?q=refunds")
	require.NoError(t, err)
	var passages client.Passages
	Decode(t, resp, &passages)
	require.NotEmpty(t, passages.Passages)
	assert.Equal(t, 0, passages.Passages[0].Chunk.Index)

	resp, err = env.API.Get("/session/history")
	require.NoError(t, err)
	var history client.History
	Decode(t, resp, &history)
	require.Len(t, history.Turns, 2)
	assert.Equal(t, "policy.txt", history.Turns[0].DocumentName)

	// Switching documents starts a fresh conversation.
	manual := upload(t, env, "manual.txt", "Press the red button to reset the device.")
	job = process(t, env, manual.ID)
	require.Equal(t, "completed", job.Status, job.Error)

	resp, err = env.API.Get("/session")
	require.NoError(t, err)
	var status client.SessionStatus
	Decode(t, resp, &status)
	assert.Equal(t, "manual.txt", status.DocumentName)
	assert.Equal(t, 0, status.TurnCount)
	assert.Equal(t, 1, status.ChunkCount)
}

func TestE2E_FailedBuildKeepsPreviousSession(t *testing.T) {
	env := SetupE2EEnv(t)

	good := upload(t, env, "good.txt", "The warranty lasts two years.")
	require.Equal(t, "completed", process(t, env, good.ID).Status)

	empty := upload(t, env, "empty.txt", "   \n\t  ")
	job := process(t, env, empty.ID)
	assert.Equal(t, "failed", job.Status)
	assert.Equal(t, "EMPTY_DOCUMENT", job.ErrorCode)

	resp, err := env.API.Get("/session")
	require.NoError(t, err)
	var status client.SessionStatus
	Decode(t, resp, &status)
	assert.True(t, status.Active)
	assert.Equal(t, "good.txt", status.DocumentName)
}

func TestE2E_UploadRejectsUnsupportedFormat(t *testing.T) {
	env := SetupE2EEnv(t)

	_, err := env.API.UploadFile("/documents", writeFile(t, "slides.pptx", "not supported"))

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestE2E_DeleteDocument(t *testing.T) {
	env := SetupE2EEnv(t)

	doc := upload(t, env, "notes.txt", "short notes")

	_, err := env.API.Delete("/documents/" + doc.ID)
	require.NoError(t, err)

	resp, err := env.API.Get("/documents")
	require.NoError(t, err)
	var list client.DocumentList
	Decode(t, resp, &list)
	assert.Empty(t, list.Documents)

	_, err = env.API.Post("/documents/"+doc.ID+"/process", nil)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
