package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
)

type firestoreSocialGraphRepository struct {
	client *firestore.Client
}

func NewFirestoreSocialGraphRepository(client *firestore.Client) repository.SocialGraphRepository {
	return &firestoreSocialGraphRepository{
		client: client,
	}
}

func (r *firestoreSocialGraphRepository) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	_, err := r.client.Collection("users").Doc(followerID).Collection("following").Doc(targetID).Get(ctx)
	if err != nil {
		err = errors.FromStore("Follow", err)
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *firestoreSocialGraphRepository) Follow(ctx context.Context, followerID, targetID string) (bool, error) {
	following := r.client.Collection("users").Doc(followerID).Collection("following").Doc(targetID)
	followers := r.client.Collection("users").Doc(targetID).Collection("followers").Doc(followerID)

	var created bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		_, err := tx.Get(following)
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		created = true
		now := time.Now()
		if err := tx.Set(following, map[string]interface{}{"followedAt": now}); err != nil {
			return err
		}
		return tx.Set(followers, map[string]interface{}{"followedAt": now})
	})
	if err != nil {
		return false, errors.FromStore("Follow", err)
	}
	return created, nil
}
