package entity

import (
	"chatterbox/pkg/errors"
)

// Mailbox names the collection of twins one user owns for one peer.
type Mailbox struct {
	OwnerID string
	PeerID  string
}

// MailboxPath derives the mailbox namespace for (owner, peer). It rejects
// empty ids only; owner == peer is left to the calling surface.
func MailboxPath(ownerID, peerID string) (Mailbox, error) {
	if ownerID == "" || peerID == "" {
		return Mailbox{}, errors.InvalidArgument("owner and peer ids are required")
	}
	return Mailbox{OwnerID: ownerID, PeerID: peerID}, nil
}

// Twin is the paired mailbox on the other participant's side.
func (m Mailbox) Twin() Mailbox {
	return Mailbox{OwnerID: m.PeerID, PeerID: m.OwnerID}
}

func (m Mailbox) String() string {
	return "users/" + m.OwnerID + "/messages/" + m.PeerID
}

// ConversationKey is the order-independent key for the pair.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
