package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	apperrors "chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func next[T any](t *testing.T, sub *stream.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription value")
	}
	var zero T
	return zero
}

func text(id, from, to, body string) *entity.Message {
	return &entity.Message{MessageID: id, SenderID: from, ReceiverID: to, Kind: entity.KindText, Body: body}
}

func TestMailboxOrderingBreaksTiesByArrival(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock(time.Unix(100, 0))))
	repo := s.Mailboxes()
	mb, _ := entity.MailboxPath("a", "b")

	for _, id := range []string{"z", "y", "x"} {
		_, err := repo.Append(ctx, mb, text(id, "a", "b", id))
		require.NoError(t, err)
	}

	sub, err := repo.Subscribe(ctx, mb)
	require.NoError(t, err)
	defer sub.Cancel()

	snap := next(t, sub)
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"z", "y", "x"}, []string{snap[0].MessageID, snap[1].MessageID, snap[2].MessageID})
}

func TestMailboxOrderingByCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Mailboxes()
	mb, _ := entity.MailboxPath("a", "b")

	late := text("late", "a", "b", "2")
	late.CreatedAt = time.Unix(200, 0)
	early := text("early", "a", "b", "1")
	early.CreatedAt = time.Unix(100, 0)
	_, _ = repo.Append(ctx, mb, late)
	_, _ = repo.Append(ctx, mb, early)

	sub, _ := repo.Subscribe(ctx, mb)
	defer sub.Cancel()
	snap := next(t, sub)
	assert.Equal(t, "early", snap[0].MessageID)
	assert.Equal(t, "late", snap[1].MessageID)
}

func TestSubscribeIsLiveAndRestartable(t *testing.T) {
	ctx := context.Background()
	repo := New().Mailboxes()
	mb, _ := entity.MailboxPath("a", "b")

	sub, err := repo.Subscribe(ctx, mb)
	require.NoError(t, err)
	assert.Empty(t, next(t, sub))

	_, err = repo.Append(ctx, mb, text("m1", "a", "b", "hi"))
	require.NoError(t, err)
	assert.Len(t, next(t, sub), 1)

	sub.Cancel()
	sub.Cancel()
	_, ok := <-sub.C
	assert.False(t, ok)

	again, err := repo.Subscribe(ctx, mb)
	require.NoError(t, err)
	defer again.Cancel()
	replay := next(t, again)
	require.Len(t, replay, 1)
	assert.Equal(t, "m1", replay[0].MessageID)
}

func TestUpdateFlagsNeverLowers(t *testing.T) {
	ctx := context.Background()
	repo := New().Mailboxes()
	mb, _ := entity.MailboxPath("a", "b")
	_, _ = repo.Append(ctx, mb, text("m1", "a", "b", "hi"))

	require.NoError(t, repo.UpdateFlags(ctx, mb, "m1", entity.Raise(false, true)))
	got, err := repo.Get(ctx, mb, "m1")
	require.NoError(t, err)
	assert.True(t, got.Delivered)
	assert.True(t, got.Seen)

	no := false
	require.NoError(t, repo.UpdateFlags(ctx, mb, "m1", entity.FlagUpdate{Delivered: &no, Seen: &no}))
	got, _ = repo.Get(ctx, mb, "m1")
	assert.True(t, got.Delivered)
	assert.True(t, got.Seen)

	err = repo.UpdateFlags(ctx, mb, "missing", entity.Raise(true, true))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetMissingIsNotFound(t *testing.T) {
	mb, _ := entity.MailboxPath("a", "b")
	_, err := New().Mailboxes().Get(context.Background(), mb, "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFaultHook(t *testing.T) {
	s := New()
	boom := apperrors.Unavailable("store down", errors.New("io"))
	s.SetFault(func(op, key string) error {
		if op == "append" {
			return boom
		}
		return nil
	})

	mb, _ := entity.MailboxPath("a", "b")
	_, err := s.Mailboxes().Append(context.Background(), mb, text("m1", "a", "b", "hi"))
	assert.ErrorIs(t, err, boom)

	s.SetFault(nil)
	_, err = s.Mailboxes().Append(context.Background(), mb, text("m1", "a", "b", "hi"))
	assert.NoError(t, err)
}

func TestPresenceDefaultsAndMerges(t *testing.T) {
	ctx := context.Background()
	repo := New().Presence()

	sub, err := repo.Subscribe(ctx, "ghost")
	require.NoError(t, err)
	defer sub.Cancel()

	p := next(t, sub)
	assert.False(t, p.Online)
	assert.False(t, p.IsTyping)
	assert.Nil(t, p.LastSeen)

	require.NoError(t, repo.Merge(ctx, "ghost", entity.PresenceUpdate{Online: true, IsTyping: true}))
	p = next(t, sub)
	assert.True(t, p.Online)
	assert.True(t, p.IsTyping)
	assert.NotNil(t, p.LastSeen)
}

func TestReactionsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := New().Reactions()
	mb, _ := entity.MailboxPath("a", "b")

	require.NoError(t, repo.Upsert(ctx, mb, entity.Reaction{MessageID: "m1", ReactorID: "a", Emoji: "❤️"}))
	require.NoError(t, repo.Upsert(ctx, mb, entity.Reaction{MessageID: "m1", ReactorID: "a", Emoji: "😂"}))

	set, err := repo.List(ctx, mb, "m1")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "😂", set["a"].Emoji)
}

func TestNotificationsNewestFirstAndMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := New().Notifications()

	first := &entity.Notification{RecipientID: "b", Kind: entity.NotificationLike, SenderID: "a", CreatedAt: time.Unix(100, 0)}
	second := &entity.Notification{RecipientID: "b", Kind: entity.NotificationFollow, SenderID: "c", CreatedAt: time.Unix(200, 0)}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEmpty(t, first.ID)

	sub, _ := repo.Subscribe(ctx, "b")
	defer sub.Cancel()
	list := next(t, sub)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, repo.MarkRead(ctx, "b", first.ID))
	require.NoError(t, repo.MarkRead(ctx, "b", first.ID))
	got, err := repo.Get(ctx, "b", first.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	assert.True(t, apperrors.IsNotFound(repo.MarkRead(ctx, "b", "nope")))
}

func TestSocialGraph(t *testing.T) {
	ctx := context.Background()
	g := New().SocialGraph()

	ok, err := g.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	created, err := g.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, created)
	ok, _ = g.IsFollowing(ctx, "a", "b")
	assert.True(t, ok)
	ok, _ = g.IsFollowing(ctx, "b", "a")
	assert.False(t, ok)

	created, err = g.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, created, "existing edge is not written again")
}

func TestReactionsSubscribeIsLive(t *testing.T) {
	ctx := context.Background()
	repo := New().Reactions()
	mb, _ := entity.MailboxPath("a", "b")

	sub, err := repo.Subscribe(ctx, mb, "m1")
	require.NoError(t, err)
	defer sub.Cancel()
	assert.Empty(t, next(t, sub))

	require.NoError(t, repo.Upsert(ctx, mb, entity.Reaction{MessageID: "m1", ReactorID: "b", Emoji: "👍"}))
	assert.Equal(t, map[string]string{"b": "👍"}, next(t, sub).Emojis())

	// other messages and the twin mailbox do not wake this subscription
	require.NoError(t, repo.Upsert(ctx, mb, entity.Reaction{MessageID: "m2", ReactorID: "b", Emoji: "🔥"}))
	require.NoError(t, repo.Upsert(ctx, mb.Twin(), entity.Reaction{MessageID: "m1", ReactorID: "b", Emoji: "🔥"}))
	require.NoError(t, repo.Upsert(ctx, mb, entity.Reaction{MessageID: "m1", ReactorID: "a", Emoji: "❤️"}))
	assert.Equal(t, map[string]string{"a": "❤️", "b": "👍"}, next(t, sub).Emojis())

	sub.Cancel()
	_, open := <-sub.C
	assert.False(t, open)
}
