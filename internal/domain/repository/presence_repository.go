package repository

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/stream"
)

type PresenceRepository interface {
	Merge(ctx context.Context, userID string, update entity.PresenceUpdate) error
	// Subscribe yields OfflinePresence while no record exists.
	Subscribe(ctx context.Context, userID string) (*stream.Subscription[entity.Presence], error)
}
