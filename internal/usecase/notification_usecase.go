package usecase

import (
	"context"
	"fmt"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/metrics"
	"chatterbox/pkg/stream"
)

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	socialGraph      repository.SocialGraphRepository
}

func NewNotificationUseCase(notificationRepo repository.NotificationRepository, socialGraph repository.SocialGraphRepository) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		socialGraph:      socialGraph,
	}
}

type NotifyInput struct {
	RecipientID string
	Kind        entity.NotificationKind
	Sender      entity.Session
	Payload     *entity.NotificationPayload
}

// Notify appends an unread notification for the recipient. Users are never
// notified about their own actions; that case returns (nil, nil).
func (uc *NotificationUseCase) Notify(ctx context.Context, input NotifyInput) (*entity.Notification, error) {
	if input.RecipientID == "" || input.Sender.UserID == "" {
		return nil, errors.InvalidArgument("recipient and sender ids are required")
	}
	if !input.Kind.Valid() {
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown notification kind %q", input.Kind))
	}
	if input.Kind == entity.NotificationComment && (input.Payload == nil || input.Payload.CommentText == "") {
		return nil, errors.InvalidArgument("comment notification requires comment text")
	}
	if input.RecipientID == input.Sender.UserID {
		logger.Debug("notification: skipping self %s by %s", input.Kind, input.Sender.UserID)
		return nil, nil
	}

	notification := &entity.Notification{
		RecipientID: input.RecipientID,
		Kind:        input.Kind,
		SenderID:    input.Sender.UserID,
		SenderName:  input.Sender.Name(),
		SenderPhoto: input.Sender.AvatarRef,
		Payload:     input.Payload,
		Read:        false,
	}
	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}

	metrics.NotificationsCreated.WithLabelValues(string(input.Kind)).Inc()
	return notification, nil
}

// Subscribe yields the recipient's notifications newest first.
func (uc *NotificationUseCase) Subscribe(ctx context.Context, recipientID string) (*stream.Subscription[[]entity.Notification], error) {
	if recipientID == "" {
		return nil, errors.InvalidArgument("recipient id is required")
	}
	return uc.notificationRepo.Subscribe(ctx, recipientID)
}

// List reads the recipient's notifications once, newest first.
func (uc *NotificationUseCase) List(ctx context.Context, recipientID string) ([]entity.Notification, error) {
	sub, err := uc.Subscribe(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	return first(ctx, "Notification", sub)
}

// SubscribeUnread yields whether the recipient has any unread notification,
// emitting only when that answer changes.
func (uc *NotificationUseCase) SubscribeUnread(ctx context.Context, recipientID string) (*stream.Subscription[bool], error) {
	src, err := uc.Subscribe(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return stream.Start(ctx, func(ctx context.Context, emit func(bool) bool) error {
		defer src.Cancel()

		first, last := true, false
		for {
			select {
			case <-ctx.Done():
				return nil
			case list, ok := <-src.C:
				if !ok {
					return src.Err()
				}
				unread := hasUnread(list)
				if !first && unread == last {
					continue
				}
				first, last = false, unread
				if !emit(unread) {
					return nil
				}
			}
		}
	}), nil
}

func hasUnread(list []entity.Notification) bool {
	for _, n := range list {
		if !n.Read {
			return true
		}
	}
	return false
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, session entity.Session, notificationID string) error {
	if notificationID == "" {
		return errors.InvalidArgument("notification id is required")
	}
	return uc.notificationRepo.MarkRead(ctx, session.UserID, notificationID)
}

// FollowBackState reports whether the caller already follows the sender of a
// follow notification.
func (uc *NotificationUseCase) FollowBackState(ctx context.Context, session entity.Session, notificationID string) (bool, error) {
	n, err := uc.notificationRepo.Get(ctx, session.UserID, notificationID)
	if err != nil {
		return false, err
	}
	if n.Kind != entity.NotificationFollow {
		return false, errors.InvalidArgument("follow-back only applies to follow notifications")
	}
	return uc.socialGraph.IsFollowing(ctx, session.UserID, n.SenderID)
}
