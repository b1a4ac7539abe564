package repository

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/stream"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	Get(ctx context.Context, recipientID, notificationID string) (*entity.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	// Subscribe yields the recipient's notifications newest first.
	Subscribe(ctx context.Context, recipientID string) (*stream.Subscription[[]entity.Notification], error)
}
