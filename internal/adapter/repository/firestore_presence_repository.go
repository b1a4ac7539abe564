package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

type firestorePresenceRepository struct {
	client *firestore.Client
}

func NewFirestorePresenceRepository(client *firestore.Client) repository.PresenceRepository {
	return &firestorePresenceRepository{
		client: client,
	}
}

func (r *firestorePresenceRepository) Merge(ctx context.Context, userID string, update entity.PresenceUpdate) error {
	data := map[string]interface{}{
		"online":   update.Online,
		"isTyping": update.IsTyping,
		"lastSeen": firestore.ServerTimestamp,
	}
	if !update.At.IsZero() {
		data["lastSeen"] = update.At
	}

	_, err := r.client.Collection("status").Doc(userID).Set(ctx, data, firestore.MergeAll)
	return errors.FromStore("Presence", err)
}

func (r *firestorePresenceRepository) Subscribe(ctx context.Context, userID string) (*stream.Subscription[entity.Presence], error) {
	ref := r.client.Collection("status").Doc(userID)

	return watchDoc(ctx, "Presence", ref, entity.OfflinePresence(userID), func(doc *firestore.DocumentSnapshot) (entity.Presence, error) {
		var p entity.Presence
		if err := doc.DataTo(&p); err != nil {
			return p, err
		}
		p.UserID = userID
		return p, nil
	}), nil
}
