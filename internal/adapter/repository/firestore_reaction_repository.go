package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

type firestoreReactionRepository struct {
	client *firestore.Client
}

func NewFirestoreReactionRepository(client *firestore.Client) repository.ReactionRepository {
	return &firestoreReactionRepository{
		client: client,
	}
}

// reactions is users/{owner}/messages/{peer}/chats/{message}/reactions, one
// document per reactor.
func (r *firestoreReactionRepository) reactions(mailbox entity.Mailbox, messageID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(mailbox.OwnerID).
		Collection("messages").Doc(mailbox.PeerID).
		Collection("chats").Doc(messageID).
		Collection("reactions")
}

func (r *firestoreReactionRepository) Upsert(ctx context.Context, mailbox entity.Mailbox, reaction entity.Reaction) error {
	if reaction.ReactedAt.IsZero() {
		reaction.ReactedAt = time.Now()
	}
	_, err := r.reactions(mailbox, reaction.MessageID).Doc(reaction.ReactorID).Set(ctx, reaction)
	return errors.FromStore("Reaction", err)
}

func (r *firestoreReactionRepository) List(ctx context.Context, mailbox entity.Mailbox, messageID string) (entity.ReactionSet, error) {
	iter := r.reactions(mailbox, messageID).Documents(ctx)
	defer iter.Stop()

	set := make(entity.ReactionSet)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.FromStore("Reaction", err)
		}

		var reaction entity.Reaction
		if err := doc.DataTo(&reaction); err != nil {
			return nil, errors.Internal("Failed to parse reaction data", err)
		}
		set[doc.Ref.ID] = reaction
	}
	return set, nil
}

func (r *firestoreReactionRepository) Subscribe(ctx context.Context, mailbox entity.Mailbox, messageID string) (*stream.Subscription[entity.ReactionSet], error) {
	list := watchQuery(ctx, "Reaction", r.reactions(mailbox, messageID).Query, func(doc *firestore.DocumentSnapshot) (entity.Reaction, error) {
		var reaction entity.Reaction
		err := doc.DataTo(&reaction)
		reaction.ReactorID = doc.Ref.ID
		return reaction, err
	})

	return stream.Map(ctx, list, func(reactions []entity.Reaction) entity.ReactionSet {
		set := make(entity.ReactionSet, len(reactions))
		for _, reaction := range reactions {
			set[reaction.ReactorID] = reaction
		}
		return set
	}), nil
}
