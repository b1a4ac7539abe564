package entity

import (
	"fmt"
	"time"

	"chatterbox/pkg/errors"
)

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
	KindAudio MessageKind = "audio"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio:
		return true
	}
	return false
}

// DeliveryState is derived from a twin's flags.
type DeliveryState string

const (
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateSeen      DeliveryState = "seen"
)

// ReplyRef is a denormalized copy of the replied-to message, not a live reference.
type ReplyRef struct {
	Body     *string     `json:"body" firestore:"text"`
	Kind     MessageKind `json:"kind" firestore:"type"`
	SenderID string      `json:"sender_id" firestore:"senderId"`
}

// Preview is the body or a "[kind message]" placeholder.
func (r ReplyRef) Preview() string {
	if r.Body != nil && *r.Body != "" {
		return *r.Body
	}
	return fmt.Sprintf("[%s message]", r.Kind)
}

// Message is one mailbox twin. Both twins of a message share MessageID and
// payload; Delivered and Seen are owned per twin.
type Message struct {
	MessageID  string      `json:"message_id" firestore:"messageId"`
	SenderID   string      `json:"sender_id" firestore:"senderId"`
	ReceiverID string      `json:"receiver_id" firestore:"receiverId"`
	CreatedAt  time.Time   `json:"created_at" firestore:"timestamp,serverTimestamp"`
	Kind       MessageKind `json:"kind" firestore:"type"`
	Body       string      `json:"body,omitempty" firestore:"text,omitempty"`
	MediaRef   string      `json:"media_ref,omitempty" firestore:"mediaUrl,omitempty"`
	ReplyTo    *ReplyRef   `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	Delivered  bool        `json:"delivered" firestore:"delivered"`
	Seen       bool        `json:"seen" firestore:"seen"`

	// Reactions is reactorID -> emoji, filled only by reads that join reactions.
	Reactions map[string]string `json:"reactions,omitempty" firestore:"-"`
}

func (m *Message) State() DeliveryState {
	switch {
	case m.Seen:
		return StateSeen
	case m.Delivered:
		return StateDelivered
	default:
		return StateSent
	}
}

// Validate checks the payload shape: body iff text, media iff not text.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return errors.InvalidArgument("message id is required")
	}
	if m.SenderID == "" || m.ReceiverID == "" {
		return errors.InvalidArgument("sender and receiver ids are required")
	}
	if !m.Kind.Valid() {
		return errors.InvalidArgument(fmt.Sprintf("unknown message kind %q", m.Kind))
	}
	if m.Kind == KindText {
		if m.Body == "" {
			return errors.InvalidArgument("text message requires a body")
		}
		if m.MediaRef != "" {
			return errors.InvalidArgument("text message cannot carry media")
		}
		return nil
	}
	if m.MediaRef == "" {
		return errors.InvalidArgument(fmt.Sprintf("%s message requires a media reference", m.Kind))
	}
	if m.Body != "" {
		return errors.InvalidArgument(fmt.Sprintf("%s message cannot carry a text body", m.Kind))
	}
	return nil
}

// Twin returns a copy with the same payload, for writing the other side.
func (m *Message) Twin() *Message {
	twin := *m
	if m.ReplyTo != nil {
		ref := *m.ReplyTo
		twin.ReplyTo = &ref
	}
	twin.Reactions = nil
	return &twin
}

// FlagUpdate is a partial flag write. Nil fields are left untouched; false
// values never lower a flag.
type FlagUpdate struct {
	Delivered *bool
	Seen      *bool
}

func Raise(delivered, seen bool) FlagUpdate {
	var u FlagUpdate
	if delivered {
		u.Delivered = &delivered
	}
	if seen {
		u.Seen = &seen
	}
	return u
}

// Apply returns the flags after the update and whether anything changed.
// seen=true implies delivered=true.
func (u FlagUpdate) Apply(delivered, seen bool) (bool, bool, bool) {
	nd, ns := delivered, seen
	if u.Delivered != nil && *u.Delivered {
		nd = true
	}
	if u.Seen != nil && *u.Seen {
		ns = true
		nd = true
	}
	return nd, ns, nd != delivered || ns != seen
}
