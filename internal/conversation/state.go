// Package conversation runs the per-panel chat state machine: it gates each
// turn through the usage quota, picks the analysis or raw-data prompt, calls
// the model and turns the reply into prose, tables and chart suggestions.
package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"insightchat-backend/internal/models"
)

type State string

const (
	StateIdle                  State = "idle"
	StateBootstrappingInsights State = "bootstrapping_insights"
	StateReady                 State = "ready"
	StateCheckingQuota         State = "checking_quota"
	StateBlocked               State = "blocked"
	StateAllowed               State = "allowed"
	StateComposingPrompt       State = "composing_prompt"
	StateAwaitingModelReply    State = "awaiting_model_reply"
	StateParsingReply          State = "parsing_reply"
)

type Mode string

const (
	ModeAnalysis Mode = "analysis"
	ModeRawData  Mode = "rawData"
)

func (m Mode) Valid() bool {
	return m == ModeAnalysis || m == ModeRawData
}

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrNotReady     = errors.New("conversation is not ready")
	ErrEmptyMessage = errors.New("message is empty")
	ErrInvalidMode  = errors.New("invalid mode")
)

// Model turns a prompt into reply text.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RawDataSource fetches the record-level dataset behind a file. A nil slice
// with a nil error means the data is unavailable.
type RawDataSource interface {
	FetchRecords(ctx context.Context, userID, fileID uuid.UUID) ([]models.Record, error)
}

// Publisher pushes conversation events to the user's live connections.
type Publisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// Limits bound the work done per turn.
type Limits struct {
	QuotaMaxRetries int
	RawMaxRows      int
	RawMaxChars     int
	HistoryMessages int
}

func DefaultLimits() Limits {
	return Limits{
		QuotaMaxRetries: 2,
		RawMaxRows:      200,
		RawMaxChars:     30000,
		HistoryMessages: 10,
	}
}
