package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
)

func TestDecodeRecordEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantNil bool
	}{
		{"bare array", `[{"a":1},{"a":2}]`, 2, false},
		{"data key", `{"data":[{"a":1}]}`, 1, false},
		{"rows key", `{"rows":[{"a":1},{"a":2},{"a":3}]}`, 3, false},
		{"records key", `{"records":[{"a":1}]}`, 1, false},
		{"raw_data key", `{"raw_data":[{"a":1}]}`, 1, false},
		{"rawData key", `{"rawData":[{"a":1}]}`, 1, false},
		{"null body", `null`, 0, true},
		{"null data", `{"data":null}`, 0, true},
		{"no known key", `{"items":[{"a":1}]}`, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeRecordEnvelope([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNil && got != nil {
				t.Fatalf("expected nil records, got %d", len(got))
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d records, got %d", tc.want, len(got))
			}
		})
	}
}

func TestDecodeRecordEnvelope_PreservesKeyOrder(t *testing.T) {
	got, err := decodeRecordEnvelope([]byte(`{"data":[{"zeta":1,"alpha":"x"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := got[0].Keys()
	if len(keys) != 2 || keys[0] != "zeta" || keys[1] != "alpha" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestRawDataClient_FetchRecords(t *testing.T) {
	fileID := uuid.New()
	userID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer svc" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"bad token"}`))
			return
		}
		if r.URL.Path != "/files/"+fileID.String()+"/records" || r.URL.Query().Get("user_id") != userID.String() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"records":[{"region":"North","sales":100}]}`))
	}))
	defer srv.Close()

	client := NewRawDataClient(srv.URL, "svc", 0)
	recs, err := client.FetchRecords(context.Background(), userID, fileID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	recs, err = client.FetchRecords(context.Background(), userID, uuid.New())
	if err != nil || recs != nil {
		t.Fatalf("expected unavailable for unknown file, got %v, %v", recs, err)
	}

	_, err = NewRawDataClient(srv.URL, "wrong", 0).FetchRecords(context.Background(), userID, fileID)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized || upstream.Message != "bad token" {
		t.Fatalf("unexpected upstream error: %+v", upstream)
	}
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world")}}},
			{Content: nil},
		},
	}
	if got := extractText(resp); got != "Hello world" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := extractText(nil); got != "" {
		t.Fatalf("expected empty text for nil response, got %q", got)
	}
}
