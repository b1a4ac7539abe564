package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

func TestReactVisibleToBothParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	require.NoError(t, err)

	sub, err := env.reactions.Subscribe(ctx, mailbox(t, "alice", "bob"), msg.MessageID)
	require.NoError(t, err)
	defer sub.Cancel()
	assert.Empty(t, recv(t, sub))

	_, err = env.reactions.React(ctx, bob, "alice", msg.MessageID, "❤️")
	require.NoError(t, err)
	set := recv(t, sub)
	assert.Equal(t, "❤️", set["bob"].Emoji)

	mine, err := env.reactions.List(ctx, bob, "alice", msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "❤️"}, mine.Emojis())
}

func TestReactLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	require.NoError(t, err)

	_, err = env.reactions.React(ctx, bob, "alice", msg.MessageID, "❤️")
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, bob, "alice", msg.MessageID, "😂")
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, alice, "bob", msg.MessageID, "👍")
	require.NoError(t, err)

	set, err := env.reactions.List(ctx, alice, "bob", msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "😂", "alice": "👍"}, set.Emojis())
}

func TestReactValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.reactions.React(ctx, bob, "alice", "m1", "")
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))

	_, err = env.reactions.React(ctx, bob, "alice", "", "❤️")
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))

	_, err = env.reactions.React(ctx, entity.Session{}, "alice", "m1", "❤️")
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

func TestReactionsDoNotNotify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, bob, "alice", msg.MessageID, "❤️")
	require.NoError(t, err)

	sub, err := env.notifications.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer sub.Cancel()
	assert.Empty(t, recv(t, sub))
}

func TestReactToMissingMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.reactions.React(ctx, bob, "alice", "no-such-message", "❤️")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, bob, "carol", msg.MessageID, "❤️")
	assert.True(t, errors.Is(err, errors.CodeNotFound), "message lives in a different conversation")

	for _, m := range []entity.Mailbox{mailbox(t, "bob", "alice"), mailbox(t, "alice", "bob"), mailbox(t, "bob", "carol"), mailbox(t, "carol", "bob")} {
		set, err := env.store.Reactions().List(ctx, m, msg.MessageID)
		require.NoError(t, err)
		assert.Empty(t, set)
	}
}
