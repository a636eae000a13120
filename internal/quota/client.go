package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPUsageClient calls the usage-tracking service's consume endpoint.
type HTTPUsageClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewHTTPUsageClient(baseURL string, timeout time.Duration) *HTTPUsageClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPUsageClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *HTTPUsageClient) Consume(ctx context.Context, credential string) (*UsageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/usage/consume", bytes.NewReader(nil))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &UsageResponse{StatusCode: resp.StatusCode}
	var envelope struct {
		Message string          `json:"message"`
		Usage   json.RawMessage `json:"usage"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil {
		out.Message = envelope.Message
		out.Usage = envelope.Usage
		if out.Message == "" && envelope.Error != nil {
			out.Message = envelope.Error.Message
		}
	}
	return out, nil
}
