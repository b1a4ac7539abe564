package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

type firestoreMailboxRepository struct {
	client *firestore.Client
}

func NewFirestoreMailboxRepository(client *firestore.Client) repository.MailboxRepository {
	return &firestoreMailboxRepository{
		client: client,
	}
}

// chats is users/{owner}/messages/{peer}/chats.
func (r *firestoreMailboxRepository) chats(mailbox entity.Mailbox) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(mailbox.OwnerID).
		Collection("messages").Doc(mailbox.PeerID).
		Collection("chats")
}

func (r *firestoreMailboxRepository) Append(ctx context.Context, mailbox entity.Mailbox, message *entity.Message) (string, error) {
	if message.MessageID == "" {
		message.MessageID = uuid.New().String()
	}

	twin := message.Twin()
	result, err := r.chats(mailbox).Doc(twin.MessageID).Set(ctx, twin)
	if err != nil {
		return "", errors.FromStore("Message", err)
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = result.UpdateTime
	}

	return message.MessageID, nil
}

func (r *firestoreMailboxRepository) Get(ctx context.Context, mailbox entity.Mailbox, messageID string) (*entity.Message, error) {
	doc, err := r.chats(mailbox).Doc(messageID).Get(ctx)
	if err != nil {
		return nil, errors.FromStore("Message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	message.MessageID = doc.Ref.ID
	return &message, nil
}

// UpdateFlags reads and raises the flags in one transaction so a concurrent
// writer can never lower them.
func (r *firestoreMailboxRepository) UpdateFlags(ctx context.Context, mailbox entity.Mailbox, messageID string, update entity.FlagUpdate) error {
	ref := r.chats(mailbox).Doc(messageID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var current entity.Message
		if err := doc.DataTo(&current); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}

		delivered, seen, changed := update.Apply(current.Delivered, current.Seen)
		if !changed {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "delivered", Value: delivered},
			{Path: "seen", Value: seen},
		})
	})
	return errors.FromStore("Message", err)
}

func (r *firestoreMailboxRepository) Subscribe(ctx context.Context, mailbox entity.Mailbox) (*stream.Subscription[[]entity.Message], error) {
	query := r.chats(mailbox).
		OrderBy("timestamp", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc)

	return watchQuery(ctx, "Message", query, func(doc *firestore.DocumentSnapshot) (entity.Message, error) {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return message, err
		}
		message.MessageID = doc.Ref.ID
		return message, nil
	}), nil
}
