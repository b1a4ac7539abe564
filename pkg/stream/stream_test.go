package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(ctx context.Context, emit func(int) bool) error {
	for i := 0; ; i++ {
		if !emit(i) {
			return nil
		}
	}
}

func TestSubscriptionDeliversInOrder(t *testing.T) {
	sub := Start(context.Background(), counter)
	defer sub.Cancel()

	for want := 0; want < 5; want++ {
		got := <-sub.C
		assert.Equal(t, want, got)
	}
}

func TestCancelIsImmediateAndIdempotent(t *testing.T) {
	sub := Start(context.Background(), counter)
	<-sub.C

	sub.Cancel()
	sub.Cancel()

	_, ok := <-sub.C
	assert.False(t, ok, "channel must be closed after cancel")
	select {
	case <-sub.Done():
	default:
		t.Fatal("producer still running after Cancel returned")
	}
	assert.NoError(t, sub.Err())
}

func TestParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := Start(ctx, counter)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop with its parent context")
	}
}

func TestProducerErrorIsKept(t *testing.T) {
	boom := errors.New("boom")
	sub := Start(context.Background(), func(ctx context.Context, emit func(string) bool) error {
		emit("one")
		return boom
	})

	assert.Equal(t, "one", <-sub.C)
	<-sub.Done()
	assert.ErrorIs(t, sub.Err(), boom)
}

func TestMap(t *testing.T) {
	src := Start(context.Background(), counter)
	doubled := Map(context.Background(), src, func(v int) int { return v * 2 })

	assert.Equal(t, 0, <-doubled.C)
	assert.Equal(t, 2, <-doubled.C)

	doubled.Cancel()
	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("source not cancelled with derived subscription")
	}
}

func TestGroupCancelsMembers(t *testing.T) {
	var g Group
	a := Start(context.Background(), counter)
	b := Start(context.Background(), counter)
	g.Add(a)
	g.Add(b)

	g.Cancel()
	g.Cancel()

	<-a.Done()
	<-b.Done()

	late := Start(context.Background(), counter)
	g.Add(late)
	select {
	case <-late.Done():
	case <-time.After(time.Second):
		require.Fail(t, "member added after cancel must be cancelled")
	}
}

func TestFirst(t *testing.T) {
	sub := Start(context.Background(), counter)
	v, err := First(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	<-sub.Done()

	empty := Start(context.Background(), func(ctx context.Context, emit func(int) bool) error { return nil })
	_, err = First(context.Background(), empty)
	assert.ErrorIs(t, err, ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := Start(context.Background(), func(ctx context.Context, emit func(int) bool) error {
		<-ctx.Done()
		return nil
	})
	_, err = First(ctx, blocked)
	assert.ErrorIs(t, err, context.Canceled)
}
