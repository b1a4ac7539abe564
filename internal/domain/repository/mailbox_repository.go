package repository

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/stream"
)

// MailboxRepository stores message twins. It never fans out: callers append
// once per side with the same message id.
type MailboxRepository interface {
	Append(ctx context.Context, mailbox entity.Mailbox, message *entity.Message) (string, error)
	Get(ctx context.Context, mailbox entity.Mailbox, messageID string) (*entity.Message, error)
	// UpdateFlags raises flags only; it returns NotFound for a missing twin.
	UpdateFlags(ctx context.Context, mailbox entity.Mailbox, messageID string, update entity.FlagUpdate) error
	// Subscribe yields the full ordered mailbox on every change, starting
	// with the current contents.
	Subscribe(ctx context.Context, mailbox entity.Mailbox) (*stream.Subscription[[]entity.Message], error)
}
