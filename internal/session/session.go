package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

var ErrUnknownBackend = errors.New("unknown session backend")

// Store keeps one conversation per session id. Loading an unknown id yields
// an empty conversation.
type Store interface {
	Load(ctx context.Context, id string) (models.Conversation, error)
	Save(ctx context.Context, id string, conv models.Conversation) error
	Delete(ctx context.Context, id string) error
}

// New creates the store named by cfg.Backend.
func New(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

type entry struct {
	conv    models.Conversation
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (models.Conversation, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || (s.ttl > 0 && s.now().After(e.expires)) {
		return models.Conversation{}, nil
	}
	return e.conv, nil
}

func (s *MemoryStore) Save(ctx context.Context, id string, conv models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.entries[id] = entry{conv: conv, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// evictExpired must be called with the lock held.
func (s *MemoryStore) evictExpired() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
}
