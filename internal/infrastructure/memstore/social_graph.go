package memstore

import (
	"context"
)

func (s *Store) SocialGraph() *SocialGraphRepository {
	return &SocialGraphRepository{s: s}
}

type SocialGraphRepository struct {
	s *Store
}

func (r *SocialGraphRepository) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.following[followerID][targetID]
	return ok, nil
}

func (r *SocialGraphRepository) Follow(ctx context.Context, followerID, targetID string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFault("follow", followerID+"->"+targetID); err != nil {
		return false, err
	}

	edges, ok := s.following[followerID]
	if !ok {
		edges = make(map[string]bool)
		s.following[followerID] = edges
	}
	if edges[targetID] {
		return false, nil
	}
	edges[targetID] = true
	return true, nil
}
