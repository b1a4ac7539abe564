package repository

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/stream"
)

// ReactionRepository keeps reactions under a mailbox twin.
type ReactionRepository interface {
	Upsert(ctx context.Context, mailbox entity.Mailbox, reaction entity.Reaction) error
	List(ctx context.Context, mailbox entity.Mailbox, messageID string) (entity.ReactionSet, error)
	Subscribe(ctx context.Context, mailbox entity.Mailbox, messageID string) (*stream.Subscription[entity.ReactionSet], error)
}
