package usecase

import (
	"context"
	"strconv"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/metrics"
	"chatterbox/pkg/stream"
)

type PresenceUseCase struct {
	presenceRepo repository.PresenceRepository
	staleAfter   time.Duration
	now          func() time.Time
}

// NewPresenceUseCase builds the tracker. staleAfter > 0 makes subscribers see
// an online record as offline once its lastSeen is older than staleAfter.
func NewPresenceUseCase(presenceRepo repository.PresenceRepository, staleAfter time.Duration) *PresenceUseCase {
	return &PresenceUseCase{
		presenceRepo: presenceRepo,
		staleAfter:   staleAfter,
		now:          time.Now,
	}
}

// Publish marks userID online with the given typing state.
func (uc *PresenceUseCase) Publish(ctx context.Context, userID string, isTyping bool) error {
	if userID == "" {
		return errors.InvalidArgument("user id is required")
	}

	err := uc.presenceRepo.Merge(ctx, userID, entity.PresenceUpdate{
		Online:   true,
		IsTyping: isTyping,
		At:       uc.now(),
	})
	if err != nil {
		return err
	}

	metrics.PresencePublishes.WithLabelValues(strconv.FormatBool(isTyping)).Inc()
	return nil
}

func (uc *PresenceUseCase) SetOffline(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.InvalidArgument("user id is required")
	}

	logger.Debug("presence: %s went offline", userID)
	return uc.presenceRepo.Merge(ctx, userID, entity.PresenceUpdate{
		Online:   false,
		IsTyping: false,
		At:       uc.now(),
	})
}

// Focus and Blur both mark the user online and not typing.
func (uc *PresenceUseCase) Focus(ctx context.Context, userID string) error {
	return uc.Publish(ctx, userID, false)
}

func (uc *PresenceUseCase) Blur(ctx context.Context, userID string) error {
	return uc.Publish(ctx, userID, false)
}

func (uc *PresenceUseCase) Subscribe(ctx context.Context, userID string) (*stream.Subscription[entity.Presence], error) {
	if userID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}

	sub, err := uc.presenceRepo.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}
	if uc.staleAfter <= 0 {
		return sub, nil
	}
	return stream.Map(ctx, sub, uc.view), nil
}

// Current reads the presence record once.
func (uc *PresenceUseCase) Current(ctx context.Context, userID string) (entity.Presence, error) {
	sub, err := uc.Subscribe(ctx, userID)
	if err != nil {
		return entity.Presence{}, err
	}
	return first(ctx, "Presence", sub)
}

func (uc *PresenceUseCase) view(p entity.Presence) entity.Presence {
	if p.StaleAt(uc.now(), uc.staleAfter) {
		p.Online = false
		p.IsTyping = false
	}
	return p
}
