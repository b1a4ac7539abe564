package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{s: s}
}

type NotificationRepository struct {
	s *Store
}

func notificationKey(recipientID string) string {
	return "notifications:" + recipientID
}

func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := notificationKey(notification.RecipientID)
	if err := s.checkFault("create_notification", key); err != nil {
		return err
	}

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}

	inbox, ok := s.notifications[notification.RecipientID]
	if !ok {
		inbox = make(map[string]*storedNotification)
		s.notifications[notification.RecipientID] = inbox
	}
	s.seq++
	inbox[notification.ID] = &storedNotification{n: *notification, seq: s.seq}

	s.changed(key)
	return nil
}

func (r *NotificationRepository) Get(ctx context.Context, recipientID, notificationID string) (*entity.Notification, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.notifications[recipientID][notificationID]
	if !ok {
		return nil, errors.NotFound("Notification", nil)
	}
	n := stored.n
	return &n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := notificationKey(recipientID)
	if err := s.checkFault("mark_read", key); err != nil {
		return err
	}

	stored, ok := s.notifications[recipientID][notificationID]
	if !ok {
		return errors.NotFound("Notification", nil)
	}
	if stored.n.Read {
		return nil
	}
	stored.n.Read = true

	s.changed(key)
	return nil
}

func (r *NotificationRepository) Subscribe(ctx context.Context, recipientID string) (*stream.Subscription[[]entity.Notification], error) {
	s := r.s
	snapshot := func() []entity.Notification {
		inbox := s.notifications[recipientID]
		ordered := make([]*storedNotification, 0, len(inbox))
		for _, n := range inbox {
			ordered = append(ordered, n)
		}
		sort.Slice(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if !a.n.CreatedAt.Equal(b.n.CreatedAt) {
				return a.n.CreatedAt.After(b.n.CreatedAt)
			}
			return a.seq > b.seq
		})
		out := make([]entity.Notification, len(ordered))
		for i, n := range ordered {
			out[i] = n.n
		}
		return out
	}
	return stream.Start(ctx, func(ctx context.Context, emit func([]entity.Notification) bool) error {
		return follow(ctx, s, notificationKey(recipientID), snapshot, emit)
	}), nil
}
