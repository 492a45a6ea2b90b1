package memory

import (
	"context"
	"sync"

	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
)

// SessionStorage implements store.SessionStorage using in-memory storage.
// Each browser session of the console holds one.
type SessionStorage struct {
	mu sync.RWMutex

	session *models.Session
}

var _ store.SessionStorage = (*SessionStorage)(nil)

// NewSessionStorage creates an empty session storage.
func NewSessionStorage() *SessionStorage {
	return &SessionStorage{}
}

// Load returns the stored session, or nil when none is stored.
func (s *SessionStorage) Load(ctx context.Context) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil, nil
	}

	// Clone to avoid external modifications
	clone := *s.session
	return &clone, nil
}

// Save stores a copy of session.
func (s *SessionStorage) Save(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *session
	s.session = &clone

	return nil
}

// Clear removes the stored session.
func (s *SessionStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil

	return nil
}
