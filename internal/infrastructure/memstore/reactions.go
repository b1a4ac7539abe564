package memstore

import (
	"context"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/stream"
)

func (s *Store) Reactions() *ReactionRepository {
	return &ReactionRepository{s: s}
}

type ReactionRepository struct {
	s *Store
}

func reactionKey(mb entity.Mailbox, messageID string) string {
	return "reactions:" + mb.String() + "/chats/" + messageID
}

func (r *ReactionRepository) Upsert(ctx context.Context, mailbox entity.Mailbox, reaction entity.Reaction) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey(mailbox, reaction.MessageID)
	if err := s.checkFault("upsert_reaction", key); err != nil {
		return err
	}

	set, ok := s.reactions[key]
	if !ok {
		set = make(entity.ReactionSet)
		s.reactions[key] = set
	}
	if reaction.ReactedAt.IsZero() {
		reaction.ReactedAt = s.now()
	}
	set[reaction.ReactorID] = reaction

	s.changed(key)
	return nil
}

func (r *ReactionRepository) List(ctx context.Context, mailbox entity.Mailbox, messageID string) (entity.ReactionSet, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyReactions(reactionKey(mailbox, messageID)), nil
}

// copyReactions must be called with s.mu held.
func (s *Store) copyReactions(key string) entity.ReactionSet {
	out := make(entity.ReactionSet, len(s.reactions[key]))
	for k, v := range s.reactions[key] {
		out[k] = v
	}
	return out
}

func (r *ReactionRepository) Subscribe(ctx context.Context, mailbox entity.Mailbox, messageID string) (*stream.Subscription[entity.ReactionSet], error) {
	s := r.s
	key := reactionKey(mailbox, messageID)
	return stream.Start(ctx, func(ctx context.Context, emit func(entity.ReactionSet) bool) error {
		return follow(ctx, s, key, func() entity.ReactionSet { return s.copyReactions(key) }, emit)
	}), nil
}
