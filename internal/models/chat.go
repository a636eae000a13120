package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a conversation's append-only log.
type Message struct {
	ID               uuid.UUID         `json:"id"`
	Role             string            `json:"role"` // "user" | "assistant" | "system"
	Content          string            `json:"content"`
	ChartSuggestions []ChartSuggestion `json:"chart_suggestions"`
	Tables           []Table           `json:"tables,omitempty"`
	RawBlock         string            `json:"raw_block,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	IsQuotaError     bool              `json:"is_quota_error,omitempty"`
}

// OpenConversationRequest opens a conversation panel over one uploaded file.
type OpenConversationRequest struct {
	FileID string `json:"file_id"`
}

// ChatRequest is the payload sent to the send-message endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the messages appended by one turn.
type ChatResponse struct {
	Messages []Message `json:"messages"`
}

type SetModeRequest struct {
	Mode string `json:"mode"`
}

// ExtractRequest is the payload for the stateless chart/table extraction endpoints.
type ExtractRequest struct {
	Text string `json:"text"`
}

type ExtractChartsResponse struct {
	Prose    string            `json:"prose"`
	Charts   []ChartSuggestion `json:"charts"`
	RawBlock string            `json:"raw_block,omitempty"`
	Rejected int               `json:"rejected"`
}

type ExtractTablesResponse struct {
	Tables []Table `json:"tables"`
}
