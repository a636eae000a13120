package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"insightchat-backend/internal/charts"
	"insightchat-backend/internal/models"
)

func TestExtractHandler_Charts(t *testing.T) {
	h := NewExtractHandler(charts.InitPresentation())

	text := barReply + "\n```json\n{\"type\":\"line\",\"data\":[]}\n```"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charts/extract", jsonBody(t, models.ExtractRequest{Text: text}))
	rr := httptest.NewRecorder()
	h.Charts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp models.ExtractChartsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Charts) != 1 || resp.Rejected != 1 {
		t.Fatalf("expected 1 chart and 1 rejection, got %d and %d", len(resp.Charts), resp.Rejected)
	}
	if resp.Prose != "North leads." {
		t.Fatalf("unexpected prose %q", resp.Prose)
	}
	if strings.Contains(resp.Prose, "```") {
		t.Fatal("fences left in prose")
	}
}

func TestExtractHandler_Tables(t *testing.T) {
	h := NewExtractHandler(charts.InitPresentation())

	text := "| a | b |\n|---|---|\n| 1 | x |\n| 2 | y |\n| 3 | z |"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tables/extract", jsonBody(t, models.ExtractRequest{Text: text}))
	rr := httptest.NewRecorder()
	h.Tables(rr, req)

	var resp models.ExtractTablesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tables) != 1 || len(resp.Tables[0].Headers) != 2 || len(resp.Tables[0].Rows) != 3 {
		t.Fatalf("unexpected tables: %+v", resp.Tables)
	}
}

func TestExtractHandler_InvalidBody(t *testing.T) {
	h := NewExtractHandler(charts.InitPresentation())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.Charts(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

type stubQueue struct {
	queue string
	jobs  []any
	err   error
}

func (q *stubQueue) Enqueue(ctx context.Context, queue string, job any) error {
	q.queue = queue
	q.jobs = append(q.jobs, job)
	return q.err
}

func TestDatasetHandler_Create(t *testing.T) {
	repo := newStubDatasetRepo()
	queue := &stubQueue{}
	h := NewDatasetHandler(repo, queue)
	userID := uuid.New()

	body := `{"name":"Q1 sales","records":[{"region":"North","sales":100},{"region":"South","sales":80}]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/datasets", strings.NewReader(body)), userID)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, rr.Code, rr.Body.String())
	}
	if len(repo.created) != 1 || repo.created[0].RowCount != 2 || repo.created[0].UserID != userID {
		t.Fatalf("unexpected stored dataset: %+v", repo.created)
	}
	if queue.queue != models.AnalysisQueue || len(queue.jobs) != 1 {
		t.Fatalf("expected one job on %s, got %d on %s", models.AnalysisQueue, len(queue.jobs), queue.queue)
	}
	job := queue.jobs[0].(models.AnalysisJob)
	if job.FileID != repo.created[0].ID {
		t.Fatal("job should reference the stored dataset")
	}
}

func TestDatasetHandler_CreateValidation(t *testing.T) {
	h := NewDatasetHandler(newStubDatasetRepo(), &stubQueue{})

	req := withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":" ","records":[]}`)), uuid.New())
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Fields["name"] == "" || resp.Error.Fields["records"] == "" {
		t.Fatalf("expected name and records field errors, got %+v", resp.Error.Fields)
	}
}

func TestDatasetHandler_QueueFailure(t *testing.T) {
	h := NewDatasetHandler(newStubDatasetRepo(), &stubQueue{err: errors.New("redis down")})

	req := withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","records":[{"a":1}]}`)), uuid.New())
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("down")}})

	rr := httptest.NewRecorder()
	h.Check(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "degraded" || resp.Checks["redis"] != "down" || resp.Checks["postgres"] != "ok" {
		t.Fatalf("unexpected health body: %+v", resp)
	}
}
