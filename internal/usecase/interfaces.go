package usecase

import (
	"context"
	stderrors "errors"

	"chatterbox/pkg/errors"
	"chatterbox/pkg/stream"
)

// TypingNotifier is told when a user sends, so their typing flag clears
// without waiting for the idle timer.
type TypingNotifier interface {
	MessageSent(ctx context.Context, userID string) error
}

// first reads one snapshot from sub for request/response callers.
func first[T any](ctx context.Context, resource string, sub *stream.Subscription[T]) (T, error) {
	v, err := stream.First(ctx, sub)
	if err == nil {
		return v, nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return v, err
	}
	return v, errors.Unavailable(resource+" read failed", err)
}
