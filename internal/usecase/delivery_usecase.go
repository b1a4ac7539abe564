package usecase

import (
	"context"
	"sync"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/metrics"
)

// DeliveryUseCase moves twins through sent -> delivered -> seen. The reader
// owns its twin's flags; the sender twin only ever gets flags raised on it.
type DeliveryUseCase struct {
	mailboxRepo repository.MailboxRepository

	mu         sync.Mutex
	pending    map[pendingKey]time.Time
	pendingTTL time.Duration
	maxPending int
	now        func() time.Time
}

const (
	defaultPendingTTL = 24 * time.Hour
	defaultMaxPending = 10000
)

// pendingKey is a seen propagation that found no sender twin yet.
type pendingKey struct {
	reader    entity.Mailbox
	messageID string
}

func NewDeliveryUseCase(mailboxRepo repository.MailboxRepository) *DeliveryUseCase {
	return &DeliveryUseCase{
		mailboxRepo: mailboxRepo,
		pending:     make(map[pendingKey]time.Time),
		pendingTTL:  defaultPendingTTL,
		maxPending:  defaultMaxPending,
		now:         time.Now,
	}
}

// MarkSeen records that session's user saw messageID in the conversation
// with peerID. Only messages the peer sent can be seen. The reader's twin
// must update; the sender twin is best effort.
func (uc *DeliveryUseCase) MarkSeen(ctx context.Context, session entity.Session, peerID, messageID string) error {
	if messageID == "" {
		return errors.InvalidArgument("message id is required")
	}
	own, err := entity.MailboxPath(session.UserID, peerID)
	if err != nil {
		return err
	}

	twin, err := uc.mailboxRepo.Get(ctx, own, messageID)
	if err != nil {
		return err
	}
	if twin.SenderID != peerID {
		return errors.InvalidArgument("only messages from the peer can be marked seen")
	}
	if twin.State() == entity.StateSeen {
		uc.propagate(ctx, own, messageID)
		return nil
	}

	return uc.markSeen(ctx, own, messageID)
}

// markSeen raises the reader's twin and propagates. The caller has checked
// that the peer sent the message.
func (uc *DeliveryUseCase) markSeen(ctx context.Context, own entity.Mailbox, messageID string) error {
	if err := uc.mailboxRepo.UpdateFlags(ctx, own, messageID, entity.Raise(true, true)); err != nil {
		return err
	}

	uc.propagate(ctx, own, messageID)
	return nil
}

// Observe runs on every mailbox snapshot the reader receives. It retries
// propagations still pending and, when autoSeen is set, marks unseen peer
// messages as seen.
func (uc *DeliveryUseCase) Observe(ctx context.Context, session entity.Session, peerID string, snapshot []entity.Message, autoSeen bool) error {
	own, err := entity.MailboxPath(session.UserID, peerID)
	if err != nil {
		return err
	}

	var firstErr error
	for i := range snapshot {
		m := &snapshot[i]
		if m.SenderID != peerID {
			continue
		}

		switch {
		case m.Seen && uc.isPending(own, m.MessageID):
			uc.propagate(ctx, own, m.MessageID)
		case !m.Seen && autoSeen:
			if err := uc.markSeen(ctx, own, m.MessageID); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// propagate raises the sender twin's flags. Failures are logged, counted and
// remembered for the next snapshot, never returned.
func (uc *DeliveryUseCase) propagate(ctx context.Context, reader entity.Mailbox, messageID string) {
	key := pendingKey{reader: reader, messageID: messageID}
	senderBox := reader.Twin()

	twin, err := uc.mailboxRepo.Get(ctx, senderBox, messageID)
	if err != nil {
		uc.remember(key)
		if errors.IsNotFound(err) {
			logger.Debug("delivery: sender twin %s/%s not found, skipping", senderBox, messageID)
			metrics.Propagations.WithLabelValues("skipped").Inc()
			return
		}
		logger.Warn("delivery: failed to read sender twin %s/%s: %v", senderBox, messageID, err)
		metrics.Propagations.WithLabelValues("failed").Inc()
		return
	}

	if twin.Delivered && twin.Seen {
		uc.forget(key)
		metrics.Propagations.WithLabelValues("noop").Inc()
		return
	}

	if err := uc.mailboxRepo.UpdateFlags(ctx, senderBox, messageID, entity.Raise(!twin.Delivered, !twin.Seen)); err != nil {
		uc.remember(key)
		logger.Warn("delivery: failed to update sender twin %s/%s: %v", senderBox, messageID, err)
		metrics.Propagations.WithLabelValues("failed").Inc()
		return
	}

	uc.forget(key)
	metrics.Propagations.WithLabelValues("applied").Inc()
}

// remember records a pending propagation. Entries expire after pendingTTL
// and the oldest is evicted once maxPending is reached.
func (uc *DeliveryUseCase) remember(key pendingKey) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.now()
	uc.pruneLocked(now)
	if _, ok := uc.pending[key]; !ok && len(uc.pending) >= uc.maxPending {
		var oldest pendingKey
		var oldestAt time.Time
		for k, at := range uc.pending {
			if oldestAt.IsZero() || at.Before(oldestAt) {
				oldest, oldestAt = k, at
			}
		}
		delete(uc.pending, oldest)
		metrics.Propagations.WithLabelValues("evicted").Inc()
	}
	uc.pending[key] = now
}

func (uc *DeliveryUseCase) pruneLocked(now time.Time) {
	for k, at := range uc.pending {
		if now.Sub(at) > uc.pendingTTL {
			delete(uc.pending, k)
			metrics.Propagations.WithLabelValues("expired").Inc()
		}
	}
}

func (uc *DeliveryUseCase) forget(key pendingKey) {
	uc.mu.Lock()
	delete(uc.pending, key)
	uc.mu.Unlock()
}

func (uc *DeliveryUseCase) isPending(reader entity.Mailbox, messageID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	key := pendingKey{reader: reader, messageID: messageID}
	at, ok := uc.pending[key]
	if ok && uc.now().Sub(at) > uc.pendingTTL {
		delete(uc.pending, key)
		return false
	}
	return ok
}

// Pending is the number of propagations waiting on a sender twin.
func (uc *DeliveryUseCase) Pending() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.pruneLocked(uc.now())
	return len(uc.pending)
}
