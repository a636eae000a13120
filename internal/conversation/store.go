package conversation

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"insightchat-backend/internal/models"
)

// Store keeps the open conversations of this process, keyed by id.
type Store struct {
	mu    sync.RWMutex
	convs map[uuid.UUID]*Conversation
	deps  Deps
}

func NewStore(deps Deps) *Store {
	return &Store{
		convs: make(map[uuid.UUID]*Conversation),
		deps:  deps,
	}
}

// Open creates a conversation. When insights are already known it is
// bootstrapped immediately; otherwise it waits in Idle for BootstrapFile.
func (s *Store) Open(ctx context.Context, userID, fileID uuid.UUID, ins *models.DatasetInsights) *Conversation {
	c := New(userID, fileID, s.deps)

	s.mu.Lock()
	s.convs[c.ID] = c
	s.mu.Unlock()

	if ins != nil {
		c.Bootstrap(ctx, ins)
	}
	return c
}

// Get returns the conversation if it exists and belongs to userID.
func (s *Store) Get(userID, id uuid.UUID) (*Conversation, error) {
	s.mu.RLock()
	c, ok := s.convs[id]
	s.mu.RUnlock()

	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	return c, nil
}

// Close discards a conversation. Turns still in flight finish but are no
// longer published.
func (s *Store) Close(userID, id uuid.UUID) error {
	s.mu.Lock()
	c, ok := s.convs[id]
	if !ok || c.UserID != userID {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.convs, id)
	s.mu.Unlock()

	c.close()
	return nil
}

// BootstrapFile hands freshly computed insights to every idle conversation
// of the file's owner and returns how many moved to Ready.
func (s *Store) BootstrapFile(ctx context.Context, userID, fileID uuid.UUID, ins *models.DatasetInsights) int {
	s.mu.RLock()
	var targets []*Conversation
	for _, c := range s.convs {
		if c.FileID == fileID && c.UserID == userID {
			targets = append(targets, c)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if c.Bootstrap(ctx, ins) {
			n++
		}
	}
	if n > 0 {
		log.Printf("[conversation] bootstrapped %d conversations for file %s", n, fileID)
	}
	return n
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
