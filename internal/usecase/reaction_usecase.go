package usecase

import (
	"context"
	"fmt"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

type ReactionUseCase struct {
	mailboxRepo  repository.MailboxRepository
	reactionRepo repository.ReactionRepository
	rateLimiter  *ratelimit.RateLimiter
	now          func() time.Time
}

func NewReactionUseCase(mailboxRepo repository.MailboxRepository, reactionRepo repository.ReactionRepository, rateLimiter *ratelimit.RateLimiter) *ReactionUseCase {
	return &ReactionUseCase{
		mailboxRepo:  mailboxRepo,
		reactionRepo: reactionRepo,
		rateLimiter:  rateLimiter,
		now:          time.Now,
	}
}

// React sets the caller's emoji on messageID, replacing any earlier one. It
// is written under both twins so each participant reads it from their own
// mailbox. The message must exist in the caller's mailbox.
func (uc *ReactionUseCase) React(ctx context.Context, session entity.Session, peerID, messageID, emoji string) (*entity.Reaction, error) {
	if messageID == "" {
		return nil, errors.InvalidArgument("message id is required")
	}
	if emoji == "" {
		return nil, errors.InvalidArgument("emoji is required")
	}
	own, err := entity.MailboxPath(session.UserID, peerID)
	if err != nil {
		return nil, err
	}

	if uc.rateLimiter != nil {
		if ok, wait := uc.rateLimiter.Allow(session.UserID, ratelimit.ActionReact); !ok {
			return nil, errors.TooManyRequests(fmt.Sprintf("Too many reactions, retry in %v", wait.Round(time.Millisecond)))
		}
	}

	if _, err := uc.mailboxRepo.Get(ctx, own, messageID); err != nil {
		return nil, err
	}

	reaction := entity.Reaction{
		MessageID: messageID,
		ReactorID: session.UserID,
		Emoji:     emoji,
		ReactedAt: uc.now(),
	}

	if err := uc.reactionRepo.Upsert(ctx, own, reaction); err != nil {
		return nil, err
	}
	if err := uc.reactionRepo.Upsert(ctx, own.Twin(), reaction); err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (uc *ReactionUseCase) List(ctx context.Context, session entity.Session, peerID, messageID string) (entity.ReactionSet, error) {
	own, err := entity.MailboxPath(session.UserID, peerID)
	if err != nil {
		return nil, err
	}
	return uc.reactionRepo.List(ctx, own, messageID)
}

func (uc *ReactionUseCase) Subscribe(ctx context.Context, mailbox entity.Mailbox, messageID string) (*stream.Subscription[entity.ReactionSet], error) {
	if messageID == "" {
		return nil, errors.InvalidArgument("message id is required")
	}
	return uc.reactionRepo.Subscribe(ctx, mailbox, messageID)
}
