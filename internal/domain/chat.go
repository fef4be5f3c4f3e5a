package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the conversation transcript.
// Content only grows while IsStreaming is true; Citations and
// ReasoningSteps are attached when the message is finalized.
type ChatMessage struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	IsStreaming    bool            `json:"isStreaming"`
	Citations      []Citation      `json:"citations,omitempty"`
	ReasoningSteps []ReasoningStep `json:"reasoningSteps,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// UploadScheme marks a citation URL that points at an uploaded document
// rather than a navigable page.
const UploadScheme = "upload://"

// Citation represents a source backing part of an answer
type Citation struct {
	ID      string  `json:"id,omitempty"`
	Index   int     `json:"index"` // 1-based, matches [n] markers in content
	Title   string  `json:"title"`
	URL     *string `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
}

// Navigable reports whether the citation URL can be opened in a browser
func (c Citation) Navigable() bool {
	if c.URL == nil || *c.URL == "" {
		return false
	}
	return !strings.HasPrefix(*c.URL, UploadScheme)
}

// StepStatus is the progress state of a reasoning step
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// ReasoningStep is a server-reported sub-stage of answer generation.
// Type is server-defined and treated as opaque.
type ReasoningStep struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Summary string         `json:"summary,omitempty"`
	Status  StepStatus     `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusKind is the coarse progress indicator of a turn
type StatusKind string

const (
	StatusIdle       StatusKind = "idle"
	StatusSearching  StatusKind = "searching"
	StatusGenerating StatusKind = "generating"
	StatusStreaming  StatusKind = "streaming"
)

// ChatStatus is transient UI-facing state, never persisted
type ChatStatus struct {
	Status       StatusKind `json:"status"`
	Message      string     `json:"message,omitempty"`
	SourcesCount int        `json:"sourcesCount,omitempty"`
}

// IdleStatus returns the resting status
func IdleStatus() ChatStatus {
	return ChatStatus{Status: StatusIdle}
}

// ChatRequest is the body posted to the stream endpoint
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ErrorBody is the JSON shape of a non-2xx response
type ErrorBody struct {
	Message string `json:"message,omitempty"`
}
