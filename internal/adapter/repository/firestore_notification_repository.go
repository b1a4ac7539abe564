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

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) inbox(recipientID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(recipientID).Collection("notifications")
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	result, err := r.inbox(notification.RecipientID).Doc(notification.ID).Set(ctx, notification)
	if err != nil {
		return errors.FromStore("Notification", err)
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = result.UpdateTime
	}
	return nil
}

func decodeNotification(recipientID string, doc *firestore.DocumentSnapshot) (entity.Notification, error) {
	var n entity.Notification
	if err := doc.DataTo(&n); err != nil {
		return n, err
	}
	n.ID = doc.Ref.ID
	n.RecipientID = recipientID
	return n, nil
}

func (r *firestoreNotificationRepository) Get(ctx context.Context, recipientID, notificationID string) (*entity.Notification, error) {
	doc, err := r.inbox(recipientID).Doc(notificationID).Get(ctx)
	if err != nil {
		return nil, errors.FromStore("Notification", err)
	}

	n, err := decodeNotification(recipientID, doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse notification data", err)
	}
	return &n, nil
}

// MarkRead uses Update so a missing document surfaces as NotFound instead of
// being created.
func (r *firestoreNotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	_, err := r.inbox(recipientID).Doc(notificationID).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	return errors.FromStore("Notification", err)
}

func (r *firestoreNotificationRepository) Subscribe(ctx context.Context, recipientID string) (*stream.Subscription[[]entity.Notification], error) {
	query := r.inbox(recipientID).OrderBy("timestamp", firestore.Desc)

	return watchQuery(ctx, "Notification", query, func(doc *firestore.DocumentSnapshot) (entity.Notification, error) {
		return decodeNotification(recipientID, doc)
	}), nil
}
