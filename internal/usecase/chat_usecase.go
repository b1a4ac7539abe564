package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/internal/domain/service"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/metrics"
	"chatterbox/pkg/stream"
)

type ChatUseCase struct {
	mailboxRepo  repository.MailboxRepository
	reactionRepo repository.ReactionRepository
	blobStore    service.BlobStore
	rateLimiter  *ratelimit.RateLimiter
	typing       TypingNotifier
	presence     *PresenceUseCase
	delivery     *DeliveryUseCase
}

func NewChatUseCase(
	mailboxRepo repository.MailboxRepository,
	reactionRepo repository.ReactionRepository,
	blobStore service.BlobStore,
	rateLimiter *ratelimit.RateLimiter,
	typing TypingNotifier,
	presence *PresenceUseCase,
	delivery *DeliveryUseCase,
) *ChatUseCase {
	return &ChatUseCase{
		mailboxRepo:  mailboxRepo,
		reactionRepo: reactionRepo,
		blobStore:    blobStore,
		rateLimiter:  rateLimiter,
		typing:       typing,
		presence:     presence,
		delivery:     delivery,
	}
}

type SendMessageInput struct {
	PeerID string
	Body   string
	// Media, when set, is uploaded first and makes this a media message.
	Media     io.Reader
	MediaType string
	ReplyTo   *entity.ReplyRef
}

// Send writes the sender twin (sent) and then the receiver twin (delivered)
// under one message id. Nothing is written if validation, the rate limit or
// the media upload fails.
func (uc *ChatUseCase) Send(ctx context.Context, session entity.Session, input SendMessageInput) (*entity.Message, error) {
	own, err := entity.MailboxPath(session.UserID, input.PeerID)
	if err != nil {
		return nil, err
	}
	if input.Media == nil && input.Body == "" {
		return nil, errors.InvalidArgument("text message requires a body")
	}
	if input.Media != nil && input.Body != "" {
		return nil, errors.InvalidArgument("media message cannot carry a text body")
	}
	if input.ReplyTo != nil && !input.ReplyTo.Kind.Valid() {
		return nil, errors.InvalidArgument("reply reference has an unknown kind")
	}

	if uc.rateLimiter != nil {
		if ok, wait := uc.rateLimiter.Allow(session.UserID, ratelimit.ActionSendMessage); !ok {
			logger.Warn("send rate limited: user %s must wait %v", session.UserID, wait)
			return nil, errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %v", wait.Round(time.Second)))
		}
	}

	message := &entity.Message{
		MessageID:  uuid.New().String(),
		SenderID:   session.UserID,
		ReceiverID: input.PeerID,
		Kind:       entity.KindText,
		Body:       input.Body,
		ReplyTo:    input.ReplyTo,
	}

	if input.Media != nil {
		if uc.blobStore == nil {
			return nil, errors.Unavailable("media uploads are not configured", nil)
		}
		uploaded, err := uc.blobStore.Upload(ctx, input.Media, input.MediaType)
		if err != nil {
			metrics.SendFailures.WithLabelValues("upload").Inc()
			logger.Error("send: media upload failed for %s: %v", session.UserID, err)
			return nil, err
		}
		message.Kind = uploaded.Kind
		message.MediaRef = uploaded.URL
	}

	if err := message.Validate(); err != nil {
		return nil, err
	}

	if _, err := uc.mailboxRepo.Append(ctx, own, message); err != nil {
		metrics.SendFailures.WithLabelValues("sender_twin").Inc()
		return nil, err
	}

	receiverTwin := message.Twin()
	receiverTwin.Delivered = true
	if _, err := uc.mailboxRepo.Append(ctx, own.Twin(), receiverTwin); err != nil {
		metrics.SendFailures.WithLabelValues("receiver_twin").Inc()
		logger.Error("send: receiver twin %s/%s failed after sender twin was written: %v", own.Twin(), message.MessageID, err)
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(string(message.Kind)).Inc()

	if uc.typing != nil {
		if err := uc.typing.MessageSent(ctx, session.UserID); err != nil {
			logger.Warn("send: failed to clear typing for %s: %v", session.UserID, err)
		}
	}

	return message, nil
}

// Subscribe yields the caller's side of the conversation with peerID.
func (uc *ChatUseCase) Subscribe(ctx context.Context, session entity.Session, peerID string) (*stream.Subscription[[]entity.Message], error) {
	own, err := entity.MailboxPath(session.UserID, peerID)
	if err != nil {
		return nil, err
	}
	return uc.mailboxRepo.Subscribe(ctx, own)
}

// List reads the current snapshot of the conversation once.
func (uc *ChatUseCase) List(ctx context.Context, session entity.Session, peerID string) ([]entity.Message, error) {
	sub, err := uc.Subscribe(ctx, session, peerID)
	if err != nil {
		return nil, err
	}
	return first(ctx, "Message", sub)
}

// Get reads one twin from the caller's mailbox with its reactions joined in.
func (uc *ChatUseCase) Get(ctx context.Context, session entity.Session, peerID, messageID string) (*entity.Message, error) {
	own, err := entity.MailboxPath(session.UserID, peerID)
	if err != nil {
		return nil, err
	}

	message, err := uc.mailboxRepo.Get(ctx, own, messageID)
	if err != nil {
		return nil, err
	}

	if uc.reactionRepo != nil {
		reactions, err := uc.reactionRepo.List(ctx, own, messageID)
		if err != nil {
			return nil, err
		}
		if len(reactions) > 0 {
			message.Reactions = reactions.Emojis()
		}
	}
	return message, nil
}
