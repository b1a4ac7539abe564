package usecase

import (
	"context"
	"sync"
	"time"

	"chatterbox/pkg/logger"
)

// TypingDebouncer turns keystrokes into typing=true and clears the flag once
// no keystroke has arrived for the configured delay.
type TypingDebouncer struct {
	presence *PresenceUseCase
	delay    time.Duration

	mu    sync.Mutex
	users map[string]*typingState
}

type typingState struct {
	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	dropped bool
}

func NewTypingDebouncer(presence *PresenceUseCase, delay time.Duration) *TypingDebouncer {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &TypingDebouncer{
		presence: presence,
		delay:    delay,
		users:    make(map[string]*typingState),
	}
}

func (d *TypingDebouncer) state(userID string) *typingState {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.users[userID]
	if !ok {
		st = &typingState{}
		d.users[userID] = st
	}
	return st
}

// lock returns the user's live state with st.mu held.
func (d *TypingDebouncer) lock(userID string) *typingState {
	for {
		st := d.state(userID)
		st.mu.Lock()
		if !st.dropped {
			return st
		}
		st.mu.Unlock()
	}
}

// drop forgets st once it has nothing left to do. Must be called with st.mu held.
func (d *TypingDebouncer) drop(userID string, st *typingState) {
	st.dropped = true
	d.mu.Lock()
	if d.users[userID] == st {
		delete(d.users, userID)
	}
	d.mu.Unlock()
}

// Keystroke publishes typing=true and re-arms the idle timer.
func (d *TypingDebouncer) Keystroke(ctx context.Context, userID string) error {
	st := d.lock(userID)
	defer st.mu.Unlock()

	if err := d.presence.Publish(ctx, userID, true); err != nil {
		return err
	}

	if st.timer != nil {
		st.timer.Stop()
	}
	st.gen++
	gen := st.gen
	st.timer = time.AfterFunc(d.delay, func() { d.expire(userID, st, gen) })
	return nil
}

func (d *TypingDebouncer) expire(userID string, st *typingState, gen uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()

	// a later keystroke or send already took over
	if st.gen != gen {
		return
	}
	st.timer = nil
	d.drop(userID, st)

	if err := d.presence.Publish(context.Background(), userID, false); err != nil {
		logger.Warn("typing: failed to clear typing for %s: %v", userID, err)
	}
}

// MessageSent clears typing immediately and cancels any pending timer.
func (d *TypingDebouncer) MessageSent(ctx context.Context, userID string) error {
	st := d.lock(userID)
	defer st.mu.Unlock()

	st.cancel()
	d.drop(userID, st)
	return d.presence.Publish(ctx, userID, false)
}

// Stop drops the user's timer without publishing anything.
func (d *TypingDebouncer) Stop(userID string) {
	d.mu.Lock()
	st, ok := d.users[userID]
	delete(d.users, userID)
	d.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	st.cancel()
	st.dropped = true
	st.mu.Unlock()
}

// StopAll drops every timer, for shutdown.
func (d *TypingDebouncer) StopAll() {
	d.mu.Lock()
	users := d.users
	d.users = make(map[string]*typingState)
	d.mu.Unlock()

	for _, st := range users {
		st.mu.Lock()
		st.cancel()
		st.dropped = true
		st.mu.Unlock()
	}
}

func (d *TypingDebouncer) tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

// cancel must be called with st.mu held.
func (st *typingState) cancel() {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.gen++
}
