package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of a session's chat history.
type ConversationTurn struct {
	Role         Role
	Content      string
	Sources      []TextChunk // assistant turns only
	Error        string      // set when the assistant turn records a failure
	DocumentName string
	CreatedAt    time.Time
}

// NewUserTurn creates a user turn
func NewUserTurn(question, documentName string, at time.Time) ConversationTurn {
	return ConversationTurn{
		Role:         RoleUser,
		Content:      question,
		DocumentName: documentName,
		CreatedAt:    at,
	}
}

// NewAssistantTurn creates an assistant turn carrying its sources
func NewAssistantTurn(answer string, sources []TextChunk, documentName string, at time.Time) ConversationTurn {
	return ConversationTurn{
		Role:         RoleAssistant,
		Content:      answer,
		Sources:      sources,
		DocumentName: documentName,
		CreatedAt:    at,
	}
}

// NewAssistantErrorTurn records a failed answer so the history stays coherent.
func NewAssistantErrorTurn(err error, documentName string, at time.Time) ConversationTurn {
	return ConversationTurn{
		Role:         RoleAssistant,
		Content:      fmt.Sprintf("Sorry, I could not answer that question: %v", err),
		Error:        err.Error(),
		DocumentName: documentName,
		CreatedAt:    at,
	}
}

// Failed reports whether the turn records an error instead of an answer.
func (t ConversationTurn) Failed() bool {
	return t.Error != ""
}
