package agent

import (
	"context"
	"sync"

	"github.com/soyeahso/proxychat/internal/domain"
)

// Session stores the transcript of one conversation.
type Session interface {
	// ID returns the stable session key.
	ID() string

	// Items returns the newest limit items in chronological order.
	// A limit <= 0 returns every item.
	Items(ctx context.Context, limit int) ([]domain.Item, error)

	// AddItems appends items atomically.
	AddItems(ctx context.Context, items []domain.Item) error

	// PopItem removes and returns the newest item. The bool is false when
	// the session is empty.
	PopItem(ctx context.Context) (domain.Item, bool, error)

	// Clear removes every item of the session.
	Clear(ctx context.Context) error

	// Close releases resources held by the session.
	Close() error
}

// MemorySession is an in-memory Session implementation.
type MemorySession struct {
	id string

	mu     sync.Mutex
	items  []domain.Item
	closed bool
}

// NewMemorySession creates an empty in-memory session.
func NewMemorySession(id string) *MemorySession {
	return &MemorySession{id: id}
}

func (s *MemorySession) ID() string { return s.id }

func (s *MemorySession) Items(_ context.Context, limit int) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return append([]domain.Item(nil), items...), nil
}

func (s *MemorySession) AddItems(_ context.Context, items []domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

func (s *MemorySession) PopItem(_ context.Context) (domain.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return domain.Item{}, false, nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, true, nil
}

func (s *MemorySession) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

// Close marks the session closed. Items stay readable.
func (s *MemorySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *MemorySession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
