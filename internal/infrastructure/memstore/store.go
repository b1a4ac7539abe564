// Package memstore is an in-process shared store. It implements every
// repository interface with the same live-subscription semantics as the
// Firestore adapters and backs STORE_BACKEND=memory and the tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"chatterbox/internal/domain/entity"
)

// FaultFunc lets callers fail an operation before it touches state.
// op is one of "append", "get", "update_flags", "merge_presence",
// "upsert_reaction", "create_notification", "mark_read", "follow".
type FaultFunc func(op, key string) error

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq uint64

	mailboxes     map[entity.Mailbox]map[string]*storedMessage
	presence      map[string]entity.Presence
	reactions     map[string]entity.ReactionSet
	notifications map[string]map[string]*storedNotification
	following     map[string]map[string]bool

	watchers map[string]chan struct{}
	fault    FaultFunc
}

type storedMessage struct {
	msg entity.Message
	seq uint64
}

type storedNotification struct {
	n   entity.Notification
	seq uint64
}

type Option func(*Store)

// WithClock replaces time.Now for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		mailboxes:     make(map[entity.Mailbox]map[string]*storedMessage),
		presence:      make(map[string]entity.Presence),
		reactions:     make(map[string]entity.ReactionSet),
		notifications: make(map[string]map[string]*storedNotification),
		following:     make(map[string]map[string]bool),
		watchers:      make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault installs (or clears, with nil) a fault hook.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

// checkFault must be called with s.mu held.
func (s *Store) checkFault(op, key string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, key)
}

// changed wakes every watcher of key. Must be called with s.mu held.
func (s *Store) changed(key string) {
	if ch, ok := s.watchers[key]; ok {
		close(ch)
		delete(s.watchers, key)
	}
}

// watch returns a channel closed on the next change to key. Must be called with s.mu held.
func (s *Store) watch(key string) <-chan struct{} {
	ch, ok := s.watchers[key]
	if !ok {
		ch = make(chan struct{})
		s.watchers[key] = ch
	}
	return ch
}

// follow runs the snapshot/emit/wait loop shared by all subscriptions.
func follow[T any](ctx context.Context, s *Store, key string, snapshot func() T, emit func(T) bool) error {
	for {
		s.mu.Lock()
		v := snapshot()
		next := s.watch(key)
		s.mu.Unlock()

		if !emit(v) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-next:
		}
	}
}
