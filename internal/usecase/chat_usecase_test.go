package usecase

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/infrastructure/memstore"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/errors"
)

func TestSendWritesBothTwins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, entity.KindText, msg.Kind)

	mailboxes := env.store.Mailboxes()
	senderTwin, err := mailboxes.Get(ctx, mailbox(t, "alice", "bob"), msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateSent, senderTwin.State())
	assert.Equal(t, "hi", senderTwin.Body)

	receiverTwin, err := mailboxes.Get(ctx, mailbox(t, "bob", "alice"), msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateDelivered, receiverTwin.State())
	assert.Equal(t, senderTwin.Body, receiverTwin.Body)
	assert.Equal(t, "alice", receiverTwin.SenderID)
	assert.Equal(t, "bob", receiverTwin.ReceiverID)
}

func TestSendKeepsReplyReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reply := &entity.ReplyRef{Kind: entity.KindImage, SenderID: "bob"}
	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "nice", ReplyTo: reply})
	require.NoError(t, err)

	twin, err := env.store.Mailboxes().Get(ctx, mailbox(t, "bob", "alice"), msg.MessageID)
	require.NoError(t, err)
	require.NotNil(t, twin.ReplyTo)
	assert.Equal(t, "[image message]", twin.ReplyTo.Preview())
}

func TestSendValidationWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input SendMessageInput
	}{
		{"empty peer", SendMessageInput{Body: "hi"}},
		{"empty body", SendMessageInput{PeerID: "bob"}},
		{"body with media", SendMessageInput{PeerID: "bob", Body: "x", Media: bytes.NewReader([]byte("x"))}},
		{"bad reply kind", SendMessageInput{PeerID: "bob", Body: "x", ReplyTo: &entity.ReplyRef{Kind: "gif"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.chat.Send(ctx, alice, tc.input)
			assert.True(t, errors.Is(err, errors.CodeInvalidArgument), "got %v", err)
		})
	}

	snap, err := env.chat.List(ctx, alice, "bob")
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSendMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Media: bytes.NewReader(png)})
	require.NoError(t, err)
	assert.Equal(t, entity.KindImage, msg.Kind)
	assert.Empty(t, msg.Body)

	data, ok := env.blobs.Get(msg.MediaRef)
	require.True(t, ok)
	assert.Equal(t, png, data)

	msg, err = env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Media: bytes.NewReader([]byte("abc")), MediaType: "video/mp4"})
	require.NoError(t, err)
	assert.Equal(t, entity.KindVideo, msg.Kind)
}

func TestSendUploadFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.blobs.FailWith(errors.Unavailable("upload failed", stderrors.New("network")))
	_, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Media: bytes.NewReader([]byte("a")), MediaType: "audio/webm"})
	assert.True(t, errors.Is(err, errors.CodeUnavailable))

	for _, mb := range []entity.Mailbox{mailbox(t, "alice", "bob"), mailbox(t, "bob", "alice")} {
		sub, err := env.store.Mailboxes().Subscribe(ctx, mb)
		require.NoError(t, err)
		assert.Empty(t, recv(t, sub))
		sub.Cancel()
	}
}

func TestSendReceiverTwinFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	receiverKey := "mailbox:" + mailbox(t, "bob", "alice").String()
	env.store.SetFault(func(op, key string) error {
		if op == "append" && key == receiverKey {
			return errors.Unavailable("store down", nil)
		}
		return nil
	})

	_, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	assert.True(t, errors.Is(err, errors.CodeUnavailable))
}

func TestSendRateLimited(t *testing.T) {
	store := memstore.New()
	presence := NewPresenceUseCase(store.Presence(), 0)
	chat := NewChatUseCase(store.Mailboxes(), store.Reactions(), nil, ratelimit.NewRateLimiter(1), nil, presence, nil)
	ctx := context.Background()

	_, err := chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "one"})
	require.NoError(t, err)

	_, err = chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "two"})
	assert.True(t, errors.Is(err, errors.CodeTooManyRequests))
}

func TestSendMediaWithoutBlobStore(t *testing.T) {
	store := memstore.New()
	presence := NewPresenceUseCase(store.Presence(), 0)
	chat := NewChatUseCase(store.Mailboxes(), store.Reactions(), nil, nil, nil, presence, nil)

	_, err := chat.Send(context.Background(), alice, SendMessageInput{PeerID: "bob", Media: bytes.NewReader([]byte("a"))})
	assert.True(t, errors.Is(err, errors.CodeUnavailable))
}

func TestSendClearsTyping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sub, err := env.presence.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, env.typing.Keystroke(ctx, "alice"))
	recvUntil(t, sub, func(p entity.Presence) bool { return p.IsTyping })

	_, err = env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "done"})
	require.NoError(t, err)
	p := recvUntil(t, sub, func(p entity.Presence) bool { return !p.IsTyping })
	assert.True(t, p.Online)
}

func TestGetJoinsReactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "hi"})
	require.NoError(t, err)

	_, err = env.reactions.React(ctx, bob, "alice", msg.MessageID, "🔥")
	require.NoError(t, err)

	got, err := env.chat.Get(ctx, alice, "bob", msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "🔥"}, got.Reactions)

	_, err = env.chat.Get(ctx, alice, "bob", "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestConversationOrderingAcrossSenders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "1"})
	require.NoError(t, err)
	_, err = env.chat.Send(ctx, bob, SendMessageInput{PeerID: "alice", Body: "2"})
	require.NoError(t, err)
	_, err = env.chat.Send(ctx, alice, SendMessageInput{PeerID: "bob", Body: "3"})
	require.NoError(t, err)

	for _, s := range []entity.Session{alice, bob} {
		peer := "bob"
		if s.UserID == "bob" {
			peer = "alice"
		}
		snap, err := env.chat.List(ctx, s, peer)
		require.NoError(t, err)
		require.Len(t, snap, 3)
		assert.Equal(t, []string{"1", "2", "3"}, []string{snap[0].Body, snap[1].Body, snap[2].Body})
	}
}
