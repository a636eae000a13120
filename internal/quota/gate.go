// Package quota gates each conversation turn behind the usage-tracking service.
package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"time"
)

const (
	msgSignIn      = "Please sign in to continue chatting."
	msgLimit       = "You've reached your usage limit. Upgrade your plan to keep chatting."
	msgUnavailable = "We couldn't verify your usage right now. Please try again in a moment."
)

var limitPattern = regexp.MustCompile(`(?i)limit|upgrade your plan`)

// Result is the outcome of one quota turn. IsLimitReached implies !Success.
type Result struct {
	Success        bool            `json:"success"`
	Usage          json.RawMessage `json:"usage,omitempty"`
	Message        string          `json:"message,omitempty"`
	IsLimitReached bool            `json:"is_limit_reached"`
}

// UsageResponse is what came back from one usage-tracking call that reached
// the service.
type UsageResponse struct {
	StatusCode int
	Message    string
	Usage      json.RawMessage
}

// UsageClient performs a single usage-tracking call. A returned error means
// the request never produced a response.
type UsageClient interface {
	Consume(ctx context.Context, credential string) (*UsageResponse, error)
}

// Checker is what the conversation orchestrator depends on.
type Checker interface {
	AttemptConsume(ctx context.Context, credential string, maxRetries int) Result
}

type Gate struct {
	client     UsageClient
	retryDelay time.Duration
}

func NewGate(client UsageClient, retryDelay time.Duration) *Gate {
	return &Gate{client: client, retryDelay: retryDelay}
}

// AttemptConsume makes one usage call plus up to maxRetries retries on
// transient failures. The first classified response (limit or success)
// ends the loop.
func (g *Gate) AttemptConsume(ctx context.Context, credential string, maxRetries int) Result {
	if credential == "" {
		return Result{Success: false, Message: msgSignIn}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && !g.wait(ctx) {
			break
		}

		resp, err := g.client.Consume(ctx, credential)
		if err != nil {
			log.Printf("[quota] attempt %d/%d failed: %v", attempt+1, maxRetries+1, err)
			continue
		}

		if isLimitReached(resp) {
			msg := resp.Message
			if msg == "" {
				msg = msgLimit
			}
			return Result{Success: false, Message: msg, IsLimitReached: true}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return Result{Success: true, Usage: resp.Usage, Message: resp.Message}
		}

		log.Printf("[quota] attempt %d/%d: usage service returned %d", attempt+1, maxRetries+1, resp.StatusCode)
	}

	return Result{Success: false, Message: msgUnavailable}
}

func (g *Gate) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if g.retryDelay <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(g.retryDelay):
		return true
	}
}

// isLimitReached classifies a response as quota exhaustion: an access-denied
// status, or a limit/upgrade message on a failure envelope. A 2xx reply that
// carries usage is a success envelope whatever its message says.
func isLimitReached(resp *UsageResponse) bool {
	if resp.StatusCode == http.StatusForbidden {
		return true
	}
	return isFailureEnvelope(resp) && limitPattern.MatchString(resp.Message)
}

func isFailureEnvelope(resp *UsageResponse) bool {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return true
	}
	usage := bytes.TrimSpace(resp.Usage)
	return len(usage) == 0 || bytes.Equal(usage, []byte("null"))
}
