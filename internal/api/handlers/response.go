package handlers

import (
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

type FileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

func fileToResponse(f domain.StoredFile) FileResponse {
	return FileResponse{
		ID:         f.ID,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		ModifiedAt: formatTime(f.ModifiedTime),
	}
}

type JobResponse struct {
	ID          string `json:"id"`
	FileID      string `json:"file_id"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

func jobToResponse(j *domain.IndexJob) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		FileID:     j.FileID,
		Status:     string(j.Status),
		ChunkCount: j.ChunkCount,
		Error:      j.Error,
		ErrorCode:  j.ErrorCode,
		CreatedAt:  formatTime(j.CreatedAt),
	}
	if j.ProcessedAt != nil {
		resp.ProcessedAt = formatTime(*j.ProcessedAt)
	}
	return resp
}

type ChunkResponse struct {
	Index      int    `json:"index"`
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

func chunksToResponse(chunks []domain.TextChunk) []ChunkResponse {
	out := make([]ChunkResponse, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkResponse{
			Index:      c.Index,
			DocumentID: c.DocumentID,
			Start:      c.Start,
			End:        c.End,
			Text:       c.Text,
		}
	}
	return out
}

type TurnResponse struct {
	Role         string          `json:"role"`
	Content      string          `json:"content"`
	Sources      []ChunkResponse `json:"sources,omitempty"`
	Error        string          `json:"error,omitempty"`
	DocumentName string          `json:"document_name"`
	CreatedAt    string          `json:"created_at"`
}

func turnsToResponse(turns []domain.ConversationTurn) []TurnResponse {
	out := make([]TurnResponse, len(turns))
	for i, t := range turns {
		out[i] = TurnResponse{
			Role:         string(t.Role),
			Content:      t.Content,
			Error:        t.Error,
			DocumentName: t.DocumentName,
			CreatedAt:    formatTime(t.CreatedAt),
		}
		if len(t.Sources) > 0 {
			out[i].Sources = chunksToResponse(t.Sources)
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}
