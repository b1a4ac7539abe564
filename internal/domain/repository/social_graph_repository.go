package repository

import "context"

// SocialGraphRepository is the follower graph collaborator. The core reads
// it for follow-back state and writes edges only through the follow flow.
type SocialGraphRepository interface {
	IsFollowing(ctx context.Context, followerID, targetID string) (bool, error)
	// Follow writes both edges: follower's following/target and target's
	// followers/follower. It reports false, writing nothing, when the edge
	// already exists. The check and the write are atomic.
	Follow(ctx context.Context, followerID, targetID string) (bool, error)
}
