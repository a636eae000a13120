package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"insightchat-backend/internal/conversation"
	"insightchat-backend/internal/middleware"
	"insightchat-backend/internal/models"
	"insightchat-backend/internal/quota"
	"insightchat-backend/internal/repository"
)

type stubDatasetRepo struct {
	datasets map[uuid.UUID]*models.Dataset
	analyses map[uuid.UUID]*models.DatasetInsights
	created  []*models.Dataset
	// beforeAnalysis runs at the start of GetAnalysis.
	beforeAnalysis func(fileID uuid.UUID)
	analysisErr    error
}

func newStubDatasetRepo() *stubDatasetRepo {
	return &stubDatasetRepo{
		datasets: map[uuid.UUID]*models.Dataset{},
		analyses: map[uuid.UUID]*models.DatasetInsights{},
	}
}

func (s *stubDatasetRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Dataset, error) {
	d, ok := s.datasets[id]
	if !ok || d.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (s *stubDatasetRepo) GetAnalysis(ctx context.Context, userID, fileID uuid.UUID) (*models.DatasetInsights, error) {
	if s.beforeAnalysis != nil {
		s.beforeAnalysis(fileID)
	}
	if s.analysisErr != nil {
		return nil, s.analysisErr
	}
	ins, ok := s.analyses[fileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ins, nil
}

func (s *stubDatasetRepo) Create(ctx context.Context, d *models.Dataset, records []models.Record) error {
	d.ID = uuid.New()
	d.RowCount = len(records)
	s.created = append(s.created, d)
	return nil
}

type stubModel struct {
	reply string
}

func (m *stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	return m.reply, nil
}

const barReply = "North leads.\n```chart\n" +
	`{"type":"bar","data":[{"region":"North","sales":100},{"region":"South","sales":80}]}` +
	"\n```"

func newConversationHandler(repo *stubDatasetRepo, reply string) *ConversationHandler {
	store := conversation.NewStore(conversation.Deps{
		Model:  &stubModel{reply: reply},
		Quota:  quota.Unmetered{},
		Limits: conversation.DefaultLimits(),
	})
	return NewConversationHandler(store, repo)
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func openConversation(t *testing.T, h *ConversationHandler, userID, fileID uuid.UUID) conversation.View {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", jsonBody(t, map[string]string{"file_id": fileID.String()}))
	req = withUser(req, userID)
	rr := httptest.NewRecorder()
	h.Open(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var resp struct {
		Conversation conversation.View `json:"conversation"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Conversation
}

func TestConversationHandler_OpenAndSend(t *testing.T) {
	userID, fileID := uuid.New(), uuid.New()
	repo := newStubDatasetRepo()
	repo.datasets[fileID] = &models.Dataset{ID: fileID, UserID: userID}
	repo.analyses[fileID] = &models.DatasetInsights{FileID: fileID, RowCount: 2}

	h := newConversationHandler(repo, barReply)
	view := openConversation(t, h, userID, fileID)
	if view.State != conversation.StateReady {
		t.Fatalf("expected ready conversation, got %s", view.State)
	}

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, models.ChatRequest{Message: "compare regions"}))
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, userID)
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}
	answer := resp.Messages[1]
	if len(answer.ChartSuggestions) != 1 {
		t.Fatalf("expected one chart, got %d", len(answer.ChartSuggestions))
	}
	if answer.ChartSuggestions[0].Roles.CategoryKey != "region" || answer.ChartSuggestions[0].Roles.ValueKey != "sales" {
		t.Fatalf("unexpected roles: %+v", answer.ChartSuggestions[0].Roles)
	}
}

func TestConversationHandler_PendingAnalysis(t *testing.T) {
	userID, fileID := uuid.New(), uuid.New()
	repo := newStubDatasetRepo()
	repo.datasets[fileID] = &models.Dataset{ID: fileID, UserID: userID}

	h := newConversationHandler(repo, "ok")
	view := openConversation(t, h, userID, fileID)
	if view.State != conversation.StateIdle {
		t.Fatalf("expected idle conversation, got %s", view.State)
	}

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, models.ChatRequest{Message: "hi"}))
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, userID)
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
}

func TestConversationHandler_OpenRacesAnalysisWorker(t *testing.T) {
	userID, fileID := uuid.New(), uuid.New()
	repo := newStubDatasetRepo()
	repo.datasets[fileID] = &models.Dataset{ID: fileID, UserID: userID}

	h := newConversationHandler(repo, "ok")
	// The worker saves and bootstraps just before the handler's read, but the
	// read still misses the saved row.
	repo.beforeAnalysis = func(fileID uuid.UUID) {
		h.store.BootstrapFile(context.Background(), userID, fileID, &models.DatasetInsights{FileID: fileID, RowCount: 4})
	}

	view := openConversation(t, h, userID, fileID)
	if view.State != conversation.StateReady {
		t.Fatalf("expected ready conversation, got %s", view.State)
	}
	if len(view.Messages) != 1 {
		t.Fatalf("expected welcome message, got %d messages", len(view.Messages))
	}
}

func TestConversationHandler_OpenAnalysisErrorDiscardsConversation(t *testing.T) {
	userID, fileID := uuid.New(), uuid.New()
	repo := newStubDatasetRepo()
	repo.datasets[fileID] = &models.Dataset{ID: fileID, UserID: userID}
	h := newConversationHandler(repo, "ok")
	repo.beforeAnalysis = func(uuid.UUID) { repo.analysisErr = errors.New("db down") }

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", jsonBody(t, map[string]string{"file_id": fileID.String()}))
	rr := httptest.NewRecorder()
	h.Open(rr, withUser(req, userID))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if n := h.store.Len(); n != 0 {
		t.Fatalf("expected no open conversations, got %d", n)
	}
}

func TestConversationHandler_Authorization(t *testing.T) {
	ownerID, otherID, fileID := uuid.New(), uuid.New(), uuid.New()
	repo := newStubDatasetRepo()
	repo.datasets[fileID] = &models.Dataset{ID: fileID, UserID: ownerID}

	h := newConversationHandler(repo, "ok")

	// Another user's dataset looks missing.
	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, map[string]string{"file_id": fileID.String()}))
	req = withUser(req, otherID)
	rr := httptest.NewRecorder()
	h.Open(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	view := openConversation(t, h, ownerID, fileID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, otherID)
	rr = httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for non-owner, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestConversationHandler_OpenValidation(t *testing.T) {
	h := newConversationHandler(newStubDatasetRepo(), "ok")

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, map[string]string{"file_id": "nope"}))
	req = withUser(req, uuid.New())
	rr := httptest.NewRecorder()
	h.Open(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Fields["file_id"] == "" {
		t.Fatalf("expected a file_id field error, got %+v", resp.Error)
	}
}

func TestConversationHandler_SetModeAndClose(t *testing.T) {
	userID, fileID := uuid.New(), uuid.New()
	repo := newStubDatasetRepo()
	repo.datasets[fileID] = &models.Dataset{ID: fileID, UserID: userID}
	repo.analyses[fileID] = &models.DatasetInsights{FileID: fileID}

	h := newConversationHandler(repo, "ok")
	view := openConversation(t, h, userID, fileID)

	req := httptest.NewRequest(http.MethodPut, "/", jsonBody(t, models.SetModeRequest{Mode: "spreadsheet"}))
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, userID)
	rr := httptest.NewRecorder()
	h.SetMode(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for unknown mode, got %d", http.StatusBadRequest, rr.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/", jsonBody(t, models.SetModeRequest{Mode: "analysis"}))
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, userID)
	rr = httptest.NewRecorder()
	h.SetMode(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, userID)
	rr = httptest.NewRecorder()
	h.Close(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = withURLParam(req, "id", view.ID.String())
	req = withUser(req, userID)
	rr = httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected closed conversation to be gone, got %d", rr.Code)
	}
}
