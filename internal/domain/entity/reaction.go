package entity

import "time"

// Reaction is keyed by (MessageID, ReactorID); a newer write from the same
// reactor replaces the older one.
type Reaction struct {
	MessageID string    `json:"message_id" firestore:"messageId"`
	ReactorID string    `json:"reactor_id" firestore:"by"`
	Emoji     string    `json:"emoji" firestore:"emoji"`
	ReactedAt time.Time `json:"reacted_at" firestore:"reactedAt"`
}

// ReactionSet maps reactorID to that reactor's current reaction.
type ReactionSet map[string]Reaction

// Emojis flattens the set into reactorID -> emoji.
func (s ReactionSet) Emojis() map[string]string {
	out := make(map[string]string, len(s))
	for reactor, r := range s {
		out[reactor] = r.Emoji
	}
	return out
}
