package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/index"
	"github.com/cloo-solutions/docqa/internal/qa"
	"github.com/cloo-solutions/docqa/internal/service"
)

type ChatService interface {
	Ask(ctx context.Context, question string) (qa.Answer, error)
	Status() service.SessionStatus
	History() []domain.ConversationTurn
	Clear()
	FindPassages(q string, limit int) ([]index.Hit, error)
}

type SessionHandler struct {
	svc ChatService
}

func NewSessionHandler(svc ChatService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer  string          `json:"answer"`
	Sources []ChunkResponse `json:"sources"`
}

type SessionStatusResponse struct {
	Active       bool   `json:"active"`
	DocumentID   string `json:"document_id,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	TurnCount    int    `json:"turn_count"`
}

type HistoryResponse struct {
	Turns []TurnResponse `json:"turns"`
}

type PassageResponse struct {
	Chunk ChunkResponse `json:"chunk"`
	Score float64       `json:"score"`
}

type PassagesResponse struct {
	Passages []PassageResponse `json:"passages"`
}

func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Status()
	api.Success(w, http.StatusOK, SessionStatusResponse{
		Active:       s.Active,
		DocumentID:   s.DocumentID,
		DocumentName: s.DocumentName,
		ChunkCount:   s.ChunkCount,
		TurnCount:    s.TurnCount,
	})
}

func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:  answer.Text,
		Sources: chunksToResponse(answer.Sources),
	})
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, HistoryResponse{Turns: turnsToResponse(h.svc.History())})
}

func (h *SessionHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Passages runs a keyword lookup over the active index.
func (h *SessionHandler) Passages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	hits, err := h.svc.FindPassages(r.URL.Query().Get("q"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := PassagesResponse{Passages: make([]PassageResponse, len(hits))}
	for i, hit := range hits {
		resp.Passages[i] = PassageResponse{
			Chunk: chunksToResponse([]domain.TextChunk{hit.Chunk})[0],
			Score: hit.Score,
		}
	}
	api.Success(w, http.StatusOK, resp)
}
