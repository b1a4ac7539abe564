package memstore

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/stream"
)

func (s *Store) Presence() *PresenceRepository {
	return &PresenceRepository{s: s}
}

type PresenceRepository struct {
	s *Store
}

func presenceKey(userID string) string {
	return "status:" + userID
}

func (r *PresenceRepository) Merge(ctx context.Context, userID string, update entity.PresenceUpdate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := presenceKey(userID)
	if err := s.checkFault("merge_presence", key); err != nil {
		return err
	}

	at := update.At
	if at.IsZero() {
		at = s.now()
	}
	s.presence[userID] = entity.Presence{
		UserID:   userID,
		Online:   update.Online,
		IsTyping: update.IsTyping,
		LastSeen: &at,
	}

	s.changed(key)
	return nil
}

func (r *PresenceRepository) Subscribe(ctx context.Context, userID string) (*stream.Subscription[entity.Presence], error) {
	s := r.s
	snapshot := func() entity.Presence {
		p, ok := s.presence[userID]
		if !ok {
			return entity.OfflinePresence(userID)
		}
		return p
	}
	return stream.Start(ctx, func(ctx context.Context, emit func(entity.Presence) bool) error {
		return follow(ctx, s, presenceKey(userID), snapshot, emit)
	}), nil
}
