package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/metrics"
	"chatterbox/pkg/stream"
)

type ConversationEventKind string

const (
	EventMessages ConversationEventKind = "messages"
	EventPresence ConversationEventKind = "presence"
)

// ConversationEvent is one update of an open conversation. Messages is set
// for EventMessages, Presence for EventPresence.
type ConversationEvent struct {
	Kind     ConversationEventKind
	PeerID   string
	Messages []entity.Message
	Presence *entity.Presence
}

// ConversationSession is an open conversation: the caller's mailbox and the
// peer's presence, delivered one event at a time to a single callback.
type ConversationSession struct {
	PeerID string

	session  entity.Session
	delivery *DeliveryUseCase
	group    stream.Group
	focused  atomic.Bool
	refocus  chan struct{}
	closed   sync.Once
}

// Conversation opens both subscriptions and starts feeding sink. sink runs
// on the session's own goroutine and must not block for long.
func (uc *ChatUseCase) Conversation(ctx context.Context, session entity.Session, peerID string, sink func(ConversationEvent)) (*ConversationSession, error) {
	messages, err := uc.Subscribe(ctx, session, peerID)
	if err != nil {
		return nil, err
	}
	presence, err := uc.presence.Subscribe(ctx, peerID)
	if err != nil {
		messages.Cancel()
		return nil, err
	}

	cs := &ConversationSession{
		PeerID:   peerID,
		session:  session,
		delivery: uc.delivery,
		refocus:  make(chan struct{}, 1),
	}

	loop := stream.Start(ctx, func(ctx context.Context, _ func(struct{}) bool) error {
		return cs.run(ctx, messages, presence, sink)
	})

	cs.group.Add(loop)
	cs.group.Add(messages)
	cs.group.Add(presence)
	metrics.ActiveConversations.Inc()
	return cs, nil
}

func (cs *ConversationSession) run(ctx context.Context, messages *stream.Subscription[[]entity.Message], presence *stream.Subscription[entity.Presence], sink func(ConversationEvent)) error {
	var last []entity.Message
	for {
		select {
		case <-ctx.Done():
			return nil

		case snap, ok := <-messages.C:
			if !ok {
				return messages.Err()
			}
			last = snap
			cs.observe(ctx, snap)
			sink(ConversationEvent{Kind: EventMessages, PeerID: cs.PeerID, Messages: snap})

		case p, ok := <-presence.C:
			if !ok {
				return presence.Err()
			}
			sink(ConversationEvent{Kind: EventPresence, PeerID: cs.PeerID, Presence: &p})

		case <-cs.refocus:
			if last != nil {
				cs.observe(ctx, last)
			}
		}
	}
}

func (cs *ConversationSession) observe(ctx context.Context, snap []entity.Message) {
	if cs.delivery == nil {
		return
	}
	if err := cs.delivery.Observe(ctx, cs.session, cs.PeerID, snap, cs.focused.Load()); err != nil {
		logger.Warn("conversation %s/%s: marking seen failed: %v", cs.session.UserID, cs.PeerID, err)
	}
}

// SetFocused turns auto-seen on or off. Turning it on re-checks the latest
// snapshot for unseen messages.
func (cs *ConversationSession) SetFocused(focused bool) {
	was := cs.focused.Swap(focused)
	if focused && !was {
		select {
		case cs.refocus <- struct{}{}:
		default:
		}
	}
}

// Close cancels every subscription of the session. It is safe to call more
// than once but must not be called from sink.
func (cs *ConversationSession) Close() {
	cs.closed.Do(func() {
		cs.group.Cancel()
		metrics.ActiveConversations.Dec()
	})
}
