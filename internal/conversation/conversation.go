package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"insightchat-backend/internal/charts"
	"insightchat-backend/internal/models"
	"insightchat-backend/internal/quota"
)

const (
	msgGenericFailure = "Sorry, something went wrong while answering. Please try again."
	msgEmptyReply     = "I couldn't put together an answer for that. Could you rephrase the question?"
	msgRawReminder    = "Still answering from your raw records."
)

// Deps are the collaborators shared by every conversation.
type Deps struct {
	Model     Model
	Quota     quota.Checker
	RawData   RawDataSource
	Publisher Publisher
	Limits    Limits
}

// Conversation is one open chat panel over one uploaded file. It lives in
// memory only and is discarded when the panel closes.
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FileID    uuid.UUID
	CreatedAt time.Time

	deps   Deps
	loader *rawLoader

	mu             sync.Mutex
	state          State
	mode           Mode
	messages       []models.Message
	insights       *models.DatasetInsights
	inFlight       int
	rawNoticeShown bool
	rawFailureSeen bool
	closed         bool
}

// View is a point-in-time copy of a conversation.
type View struct {
	ID             uuid.UUID        `json:"id"`
	FileID         uuid.UUID        `json:"file_id"`
	State          State            `json:"state"`
	Mode           Mode             `json:"mode"`
	RawDataFetched bool             `json:"raw_data_fetched"`
	Messages       []models.Message `json:"messages"`
	CreatedAt      time.Time        `json:"created_at"`
}

func New(userID, fileID uuid.UUID, deps Deps) *Conversation {
	c := &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		FileID:    fileID,
		CreatedAt: time.Now().UTC(),
		deps:      deps,
		state:     StateIdle,
		mode:      ModeAnalysis,
		messages:  []models.Message{},
	}
	c.loader = newRawLoader(c.fetchRaw)
	return c
}

func (c *Conversation) fetchRaw(ctx context.Context) ([]models.Record, error) {
	if c.deps.RawData == nil {
		return nil, nil
	}
	records, err := c.deps.RawData.FetchRecords(ctx, c.UserID, c.FileID)
	if err != nil {
		log.Printf("[conversation] %s: raw data fetch failed: %v", c.ID, err)
		return nil, fmt.Errorf("fetch raw records: %w", err)
	}
	log.Printf("[conversation] %s: loaded %d raw records", c.ID, len(records))
	return records, nil
}

// Bootstrap moves an idle conversation to Ready with the given insights and
// posts a welcome message. Calls after the first are no-ops.
func (c *Conversation) Bootstrap(ctx context.Context, ins *models.DatasetInsights) bool {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	c.state = StateBootstrappingInsights
	c.insights = ins
	welcome := newMessage(models.RoleAssistant, welcomeText(ins))
	c.messages = append(c.messages, welcome)
	c.state = StateReady
	c.mu.Unlock()

	c.publish(ctx, welcome)
	return true
}

func welcomeText(ins *models.DatasetInsights) string {
	if ins == nil || ins.RowCount == 0 {
		return "Your dataset is ready. Ask me anything about it, or switch to raw data mode for row-level questions."
	}
	return fmt.Sprintf("I've reviewed your dataset (%d rows). Ask me about trends and performers, or switch to raw data mode for row-level questions.", ins.RowCount)
}

// SetMode switches the prompt strategy. Entering raw-data mode starts the
// one-time record fetch in the background.
func (c *Conversation) SetMode(ctx context.Context, m Mode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()

	if m == ModeRawData {
		c.loader.Trigger(ctx)
	}
	return nil
}

// Send runs one turn and returns the messages it appended, starting with the
// user's own message. Concurrent sends on one conversation append in
// completion order; callers should wait for a turn before sending the next.
func (c *Conversation) Send(ctx context.Context, credential, text string) ([]models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == StateIdle || c.state == StateBootstrappingInsights {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	history := c.historyLocked()
	mode := c.mode
	insights := c.insights
	c.inFlight++
	userMsg := newMessage(models.RoleUser, text)
	c.messages = append(c.messages, userMsg)
	c.state = StateCheckingQuota
	c.mu.Unlock()

	c.publish(ctx, userMsg)
	appended := []models.Message{userMsg}
	defer c.finishTurn()

	res := c.deps.Quota.AttemptConsume(ctx, credential, c.deps.Limits.QuotaMaxRetries)
	if !res.Success {
		c.setState(StateBlocked)
		blocked := newMessage(models.RoleAssistant, res.Message)
		blocked.IsQuotaError = res.IsLimitReached
		return append(appended, c.append(ctx, blocked)), nil
	}

	c.setState(StateAllowed)
	c.setState(StateComposingPrompt)

	in := turnPrompt{Question: text, History: history, Insights: insights}
	if mode == ModeRawData {
		records, err := c.loader.Load(ctx)
		if err != nil {
			if c.firstRawFailure() {
				return append(appended, c.append(ctx, newMessage(models.RoleAssistant, msgGenericFailure))), nil
			}
			in.RawUnavailable = true
		}
		in.Records = records
		if records == nil {
			in.RawUnavailable = true
		}
		appended = append(appended, c.append(ctx, c.rawNotice(records)))
	}

	prompt := strategyFor(mode)(in, c.deps.Limits)

	c.setState(StateAwaitingModelReply)
	reply, err := c.deps.Model.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[conversation] %s: model call failed: %v", c.ID, err)
		return append(appended, c.append(ctx, newMessage(models.RoleAssistant, msgGenericFailure))), nil
	}

	c.setState(StateParsingReply)
	ext := charts.Extract(reply)
	if len(ext.Problems) > 0 {
		log.Printf("[conversation] %s: dropped %d chart candidates", c.ID, len(ext.Problems))
	}

	answer := newMessage(models.RoleAssistant, ext.Prose)
	if len(ext.Suggestions) > 0 {
		answer.ChartSuggestions = ext.Suggestions
	}
	answer.Tables = ext.Tables
	answer.RawBlock = ext.RawBlock
	if answer.Content == "" && len(answer.ChartSuggestions) == 0 && len(answer.Tables) == 0 {
		answer.Content = msgEmptyReply
	}
	return append(appended, c.append(ctx, answer)), nil
}

// rawNotice builds the system notice for a raw-data turn: a full one the
// first time, a short reminder afterwards.
func (c *Conversation) rawNotice(records []models.Record) models.Message {
	c.mu.Lock()
	first := !c.rawNoticeShown
	c.rawNoticeShown = true
	c.mu.Unlock()

	if !first {
		return newMessage(models.RoleSystem, msgRawReminder)
	}
	if len(records) == 0 {
		return newMessage(models.RoleSystem, "Raw data mode is on, but the underlying records are unavailable for this file.")
	}
	shown := len(records)
	if lim := c.deps.Limits.RawMaxRows; lim > 0 && shown > lim {
		shown = lim
	}
	return newMessage(models.RoleSystem, fmt.Sprintf("Raw data loaded: %d records, up to %d included with each question.", len(records), shown))
}

func (c *Conversation) firstRawFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rawFailureSeen {
		return false
	}
	c.rawFailureSeen = true
	return true
}

func (c *Conversation) historyLocked() []models.Message {
	var out []models.Message
	for _, m := range c.messages {
		if m.Role == models.RoleUser || m.Role == models.RoleAssistant {
			out = append(out, m)
		}
	}
	if n := c.deps.Limits.HistoryMessages; n >= 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func (c *Conversation) append(ctx context.Context, m models.Message) models.Message {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()

	c.publish(ctx, m)
	return m
}

func (c *Conversation) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Conversation) finishTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
	if c.inFlight == 0 {
		c.state = StateReady
	}
}

func (c *Conversation) publish(ctx context.Context, m models.Message) {
	if c.deps.Publisher == nil {
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.deps.Publisher.PublishUpdate(ctx, c.UserID, models.WSMessage{
		Type:    "message_appended",
		Payload: models.MessageAppended{ConversationID: c.ID, Message: m},
	})
}

func (c *Conversation) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Conversation) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]models.Message, len(c.messages))
	copy(msgs, c.messages)
	return View{
		ID:             c.ID,
		FileID:         c.FileID,
		State:          c.state,
		Mode:           c.mode,
		RawDataFetched: c.loader.Fetched(),
		Messages:       msgs,
		CreatedAt:      c.CreatedAt,
	}
}

func newMessage(role, content string) models.Message {
	return models.Message{
		ID:               uuid.New(),
		Role:             role,
		Content:          content,
		ChartSuggestions: []models.ChartSuggestion{},
		Timestamp:        time.Now().UTC(),
	}
}
