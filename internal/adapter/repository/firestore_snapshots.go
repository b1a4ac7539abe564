package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/stream"
)

// watchQuery turns a Firestore query listener into a Subscription that
// yields the decoded result set on every change.
func watchQuery[T any](parent context.Context, resource string, q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error)) *stream.Subscription[[]T] {
	return stream.Start(parent, func(ctx context.Context, emit func([]T) bool) error {
		it := q.Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("%s listener stopped: %v", resource, err)
				return errors.FromStore(resource, err)
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				return errors.FromStore(resource, err)
			}

			out := make([]T, 0, len(docs))
			for _, doc := range docs {
				v, err := decode(doc)
				if err != nil {
					logger.Warn("skipping undecodable %s %s: %v", resource, doc.Ref.ID, err)
					continue
				}
				out = append(out, v)
			}
			if !emit(out) {
				return nil
			}
		}
	})
}

// watchDoc is watchQuery for a single document. missing is emitted while the
// document does not exist.
func watchDoc[T any](parent context.Context, resource string, ref *firestore.DocumentRef, missing T, decode func(*firestore.DocumentSnapshot) (T, error)) *stream.Subscription[T] {
	return stream.Start(parent, func(ctx context.Context, emit func(T) bool) error {
		it := ref.Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.IsNotFound(errors.FromStore(resource, err)) {
					if !emit(missing) {
						return nil
					}
					continue
				}
				logger.Error("%s listener stopped: %v", resource, err)
				return errors.FromStore(resource, err)
			}

			v := missing
			if snap.Exists() {
				if v, err = decode(snap); err != nil {
					logger.Warn("undecodable %s %s: %v", resource, ref.ID, err)
					v = missing
				}
			}
			if !emit(v) {
				return nil
			}
		}
	})
}
