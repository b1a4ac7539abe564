package entity

import "time"

// Presence is the per-user status record. LastSeen is nil for users that
// never published.
type Presence struct {
	UserID   string     `json:"user_id" firestore:"-"`
	Online   bool       `json:"online" firestore:"online"`
	IsTyping bool       `json:"is_typing" firestore:"isTyping"`
	LastSeen *time.Time `json:"last_seen" firestore:"lastSeen"`
}

// OfflinePresence is what subscribers see for a user with no record.
func OfflinePresence(userID string) Presence {
	return Presence{UserID: userID}
}

// PresenceUpdate is merged into the record; unspecified fields stay as they are.
type PresenceUpdate struct {
	Online   bool
	IsTyping bool
	At       time.Time
}

// StaleAt reports whether an online record should be read as offline given
// a staleness threshold. A zero threshold disables the rule.
func (p Presence) StaleAt(now time.Time, threshold time.Duration) bool {
	if threshold <= 0 || !p.Online || p.LastSeen == nil {
		return false
	}
	return now.Sub(*p.LastSeen) > threshold
}
