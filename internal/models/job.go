package models

import (
	"github.com/google/uuid"
)

// AnalysisQueue is the Redis list carrying AnalysisJob payloads.
const AnalysisQueue = "queue:dataset-analysis"

// AnalysisJob asks a worker to compute insights for one uploaded file.
type AnalysisJob struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	FileID     uuid.UUID `json:"file_id"`
	RetryCount int       `json:"retry_count"`
}

type AnalysisFailed struct {
	FileID       uuid.UUID `json:"file_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type MessageAppended struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Message        Message   `json:"message"`
}

type AnalysisReady struct {
	FileID uuid.UUID `json:"file_id"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
