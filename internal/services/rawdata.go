package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"insightchat-backend/internal/models"
)

// UpstreamError is a non-success answer from an HTTP collaborator.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// recordEnvelopeKeys are the keys the data service has used for the
// record list, in lookup order.
var recordEnvelopeKeys = []string{"data", "rows", "records", "raw_data", "rawData"}

// RawDataClient fetches record-level data for a file from the data service.
type RawDataClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewRawDataClient(baseURL, token string, timeout time.Duration) *RawDataClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RawDataClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// FetchRecords returns nil, nil when the service has no data for the file.
func (c *RawDataClient) FetchRecords(ctx context.Context, userID, fileID uuid.UUID) ([]models.Record, error) {
	q := url.Values{}
	q.Set("user_id", userID.String())
	endpoint := fmt.Sprintf("%s/files/%s/records?%s", c.baseURL, fileID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			Message string `json:"message"`
		}
		json.Unmarshal(body, &env)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	return decodeRecordEnvelope(body)
}

// decodeRecordEnvelope accepts a bare array or an object holding the array
// under one of the known keys. null anywhere means unavailable.
func decodeRecordEnvelope(body []byte) ([]models.Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []models.Record
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	for _, key := range recordEnvelopeKeys {
		raw, ok := env[key]
		if !ok {
			continue
		}
		if string(raw) == "null" {
			return nil, nil
		}
		var records []models.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return records, nil
	}
	return nil, nil
}
