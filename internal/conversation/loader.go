package conversation

import (
	"context"
	"sync"

	"insightchat-backend/internal/models"
)

// rawLoader runs the raw-record fetch at most once per conversation.
// Triggers that arrive while the fetch is running wait on the same result.
type rawLoader struct {
	fetch func(ctx context.Context) ([]models.Record, error)

	mu      sync.Mutex
	started bool
	done    chan struct{}
	records []models.Record
	err     error
}

func newRawLoader(fetch func(ctx context.Context) ([]models.Record, error)) *rawLoader {
	return &rawLoader{fetch: fetch, done: make(chan struct{})}
}

// Trigger starts the fetch if nothing has started it yet and returns a
// channel closed on completion. The fetch outlives ctx cancellation.
func (l *rawLoader) Trigger(ctx context.Context) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		l.started = true
		fetchCtx := context.WithoutCancel(ctx)
		go func() {
			records, err := l.fetch(fetchCtx)

			l.mu.Lock()
			l.records, l.err = records, err
			l.mu.Unlock()

			close(l.done)
		}()
	}
	return l.done
}

// Load waits for the single fetch, starting it if needed.
func (l *rawLoader) Load(ctx context.Context) ([]models.Record, error) {
	done := l.Trigger(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records, l.err
}

// Fetched reports whether the fetch has completed, successfully or not.
func (l *rawLoader) Fetched() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
