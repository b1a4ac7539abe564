package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/infrastructure/memstore"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/stream"
)

var (
	alice = entity.Session{UserID: "alice", DisplayName: "Alice", AvatarRef: "https://img/alice.png"}
	bob   = entity.Session{UserID: "bob", DisplayName: "Bob"}
)

type testEnv struct {
	store         *memstore.Store
	blobs         *memstore.BlobStore
	presence      *PresenceUseCase
	typing        *TypingDebouncer
	delivery      *DeliveryUseCase
	chat          *ChatUseCase
	reactions     *ReactionUseCase
	notifications *NotificationUseCase
	follows       *FollowUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.New()
	blobs := memstore.NewBlobStore()
	limiter := ratelimit.NewRateLimiter(0)

	presence := NewPresenceUseCase(store.Presence(), 0)
	typing := NewTypingDebouncer(presence, 20*time.Millisecond)
	delivery := NewDeliveryUseCase(store.Mailboxes())
	notifications := NewNotificationUseCase(store.Notifications(), store.SocialGraph())

	env := &testEnv{
		store:         store,
		blobs:         blobs,
		presence:      presence,
		typing:        typing,
		delivery:      delivery,
		chat:          NewChatUseCase(store.Mailboxes(), store.Reactions(), blobs, limiter, typing, presence, delivery),
		reactions:     NewReactionUseCase(store.Mailboxes(), store.Reactions(), limiter),
		notifications: notifications,
		follows:       NewFollowUseCase(store.SocialGraph(), notifications),
	}
	t.Cleanup(typing.StopAll)
	return env
}

func mailbox(t *testing.T, owner, peer string) entity.Mailbox {
	t.Helper()
	mb, err := entity.MailboxPath(owner, peer)
	require.NoError(t, err)
	return mb
}

// recv waits for the next value on sub.
func recv[T any](t *testing.T, sub *stream.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C:
		require.True(t, ok, "subscription closed early: %v", sub.Err())
		return v
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for subscription value")
	}
	var zero T
	return zero
}

// recvUntil reads values until cond holds.
func recvUntil[T any](t *testing.T, sub *stream.Subscription[T], cond func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-sub.C:
			require.True(t, ok, "subscription closed early: %v", sub.Err())
			if cond(v) {
				return v
			}
		case <-deadline:
			require.FailNow(t, "condition not reached before timeout")
		}
	}
}
