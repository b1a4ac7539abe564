// Package stream provides the live, cancellable sequences used for mailbox,
// presence, reaction and notification subscriptions.
//
// A Subscription is driven by a producer goroutine that emits values onto an
// unbuffered channel. Cancel stops the producer and waits for it to exit, so
// once Cancel returns no further value is delivered and C is closed.
package stream

import (
	"context"
	"errors"
	"sync"
)

// Canceler is anything that can be cancelled more than once safely.
type Canceler interface {
	Cancel()
}

// Producer feeds a subscription. It must return when ctx is done. emit
// reports false once the subscription has been cancelled.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

type Subscription[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Start runs producer in its own goroutine. The subscription ends when the
// parent context is done, Cancel is called, or the producer returns.
func Start[T any](parent context.Context, producer Producer[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan T)
	s := &Subscription[T]{
		C:      ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	emit := func(v T) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		select {
		case ch <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(ch)
		err := producer(ctx, emit)
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
		cancel()
	}()

	return s
}

// Cancel stops the subscription. Calling it again is a no-op.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the producer has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the producer, if any. Cancellation is not an error.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Map derives a subscription whose values are fn applied to the source's.
// Cancelling the derived subscription cancels the source.
func Map[T, U any](parent context.Context, src *Subscription[T], fn func(T) U) *Subscription[U] {
	return Start(parent, func(ctx context.Context, emit func(U) bool) error {
		defer src.Cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case v, ok := <-src.C:
				if !ok {
					return src.Err()
				}
				if !emit(fn(v)) {
					return nil
				}
			}
		}
	})
}

// Group cancels a set of subscriptions together.
type Group struct {
	mu        sync.Mutex
	members   []Canceler
	cancelled bool
}

// Add registers c. If the group is already cancelled c is cancelled at once.
func (g *Group) Add(c Canceler) {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		c.Cancel()
		return
	}
	g.members = append(g.members, c)
	g.mu.Unlock()
}

func (g *Group) Cancel() {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		return
	}
	g.cancelled = true
	members := g.members
	g.members = nil
	g.mu.Unlock()

	for _, m := range members {
		m.Cancel()
	}
}

// ErrClosed is returned by First when the subscription ended without a value.
var ErrClosed = errors.New("stream: subscription closed")

// First waits for the first value of sub and then cancels it.
func First[T any](ctx context.Context, sub *Subscription[T]) (T, error) {
	defer sub.Cancel()

	var zero T
	select {
	case v, ok := <-sub.C:
		if !ok {
			if err := sub.Err(); err != nil {
				return zero, err
			}
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
