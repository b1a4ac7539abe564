package entity

import "time"

type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationLike, NotificationComment, NotificationFollow:
		return true
	}
	return false
}

type NotificationPayload struct {
	CommentText string `json:"comment_text,omitempty" firestore:"commentText,omitempty"`
	PostID      string `json:"post_id,omitempty" firestore:"postId,omitempty"`
}

type Notification struct {
	ID          string               `json:"id" firestore:"-"`
	RecipientID string               `json:"recipient_id" firestore:"-"`
	Kind        NotificationKind     `json:"kind" firestore:"type"`
	SenderID    string               `json:"sender_id" firestore:"senderId"`
	SenderName  string               `json:"sender_name" firestore:"senderName"`
	SenderPhoto string               `json:"sender_photo,omitempty" firestore:"senderPhoto,omitempty"`
	Payload     *NotificationPayload `json:"payload,omitempty" firestore:"payload,omitempty"`
	CreatedAt   time.Time            `json:"created_at" firestore:"timestamp,serverTimestamp"`
	Read        bool                 `json:"read" firestore:"read"`
}
