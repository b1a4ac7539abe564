package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

// Mailboxes returns the MailboxRepository view of the store.
func (s *Store) Mailboxes() *MailboxRepository {
	return &MailboxRepository{s: s}
}

type MailboxRepository struct {
	s *Store
}

func mailboxKey(mb entity.Mailbox) string {
	return "mailbox:" + mb.String()
}

func (r *MailboxRepository) Append(ctx context.Context, mailbox entity.Mailbox, message *entity.Message) (string, error) {
	if message.MessageID == "" {
		message.MessageID = uuid.New().String()
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mailboxKey(mailbox)
	if err := s.checkFault("append", key); err != nil {
		return "", err
	}

	box, ok := s.mailboxes[mailbox]
	if !ok {
		box = make(map[string]*storedMessage)
		s.mailboxes[mailbox] = box
	}

	stored := message.Twin()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.seq++
	box[stored.MessageID] = &storedMessage{msg: *stored, seq: s.seq}
	message.CreatedAt = stored.CreatedAt

	s.changed(key)
	return stored.MessageID, nil
}

func (r *MailboxRepository) Get(ctx context.Context, mailbox entity.Mailbox, messageID string) (*entity.Message, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFault("get", mailboxKey(mailbox)); err != nil {
		return nil, err
	}

	stored, ok := s.mailboxes[mailbox][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	msg := stored.msg
	return &msg, nil
}

func (r *MailboxRepository) UpdateFlags(ctx context.Context, mailbox entity.Mailbox, messageID string, update entity.FlagUpdate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mailboxKey(mailbox)
	if err := s.checkFault("update_flags", key); err != nil {
		return err
	}

	stored, ok := s.mailboxes[mailbox][messageID]
	if !ok {
		return errors.NotFound("Message", nil)
	}

	delivered, seen, changed := update.Apply(stored.msg.Delivered, stored.msg.Seen)
	if !changed {
		return nil
	}
	stored.msg.Delivered = delivered
	stored.msg.Seen = seen

	s.changed(key)
	return nil
}

func (r *MailboxRepository) Subscribe(ctx context.Context, mailbox entity.Mailbox) (*stream.Subscription[[]entity.Message], error) {
	s := r.s
	key := mailboxKey(mailbox)

	snapshot := func() []entity.Message {
		box := s.mailboxes[mailbox]
		ordered := make([]*storedMessage, 0, len(box))
		for _, m := range box {
			ordered = append(ordered, m)
		}
		sort.Slice(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
				return a.msg.CreatedAt.Before(b.msg.CreatedAt)
			}
			return a.seq < b.seq
		})
		out := make([]entity.Message, len(ordered))
		for i, m := range ordered {
			out[i] = m.msg
		}
		return out
	}

	return stream.Start(ctx, func(ctx context.Context, emit func([]entity.Message) bool) error {
		return follow(ctx, s, key, snapshot, emit)
	}), nil
}
