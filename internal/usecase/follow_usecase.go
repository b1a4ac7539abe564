package usecase

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

type FollowUseCase struct {
	socialGraph   repository.SocialGraphRepository
	notifications *NotificationUseCase
}

func NewFollowUseCase(socialGraph repository.SocialGraphRepository, notifications *NotificationUseCase) *FollowUseCase {
	return &FollowUseCase{
		socialGraph:   socialGraph,
		notifications: notifications,
	}
}

// Follow writes the edge pair and notifies the target. It returns false when
// the caller already followed the target, in which case nothing is written.
func (uc *FollowUseCase) Follow(ctx context.Context, session entity.Session, targetID string) (bool, error) {
	created, err := uc.link(ctx, session, targetID)
	if err != nil || !created {
		return created, err
	}

	_, err = uc.notifications.Notify(ctx, NotifyInput{
		RecipientID: targetID,
		Kind:        entity.NotificationFollow,
		Sender:      session,
	})
	if err != nil {
		logger.Error("follow: edge written but notification failed for %s -> %s: %v", session.UserID, targetID, err)
		return true, err
	}
	return true, nil
}

// FollowBack writes the edge pair without notifying.
func (uc *FollowUseCase) FollowBack(ctx context.Context, session entity.Session, targetID string) (bool, error) {
	return uc.link(ctx, session, targetID)
}

func (uc *FollowUseCase) link(ctx context.Context, session entity.Session, targetID string) (bool, error) {
	if session.UserID == "" || targetID == "" {
		return false, errors.InvalidArgument("user ids are required")
	}
	if session.UserID == targetID {
		return false, errors.InvalidArgument("cannot follow yourself")
	}

	return uc.socialGraph.Follow(ctx, session.UserID, targetID)
}
