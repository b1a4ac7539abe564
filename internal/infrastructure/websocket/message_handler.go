package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/go-playground/validator/v10"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/stream"
)

// Client operations
const (
	MessageTypePing              = "ping"
	MessageTypeJoinConversation  = "join_conversation"
	MessageTypeLeaveConversation = "leave_conversation"
	MessageTypeSendMessage       = "send_message"
	MessageTypeTyping            = "typing"
	MessageTypeFocus             = "focus"
	MessageTypeBlur              = "blur"
	MessageTypeMessageVisible    = "message_visible"
	MessageTypeReact             = "react"
)

// Server events
const (
	EventPong          = "pong"
	EventMessages      = "messages"
	EventPresence      = "presence"
	EventReactions     = "reactions"
	EventNotifications = "notifications"
	EventUnread        = "unread"
	EventError         = "error"
)

// WSMessage is the envelope for both directions. Incoming Data is decoded
// per operation.
type WSMessage struct {
	Type      string      `json:"type"`
	PeerID    string      `json:"peer_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type incomingMessage struct {
	Type   string          `json:"type"`
	PeerID string          `json:"peer_id"`
	Data   json.RawMessage `json:"data"`
}

type SendMessageData struct {
	TempID  string           `json:"temp_id"`
	Body    string           `json:"body" validate:"required,max=4000"`
	ReplyTo *entity.ReplyRef `json:"reply_to,omitempty"`
}

type MessageVisibleData struct {
	MessageID string `json:"message_id" validate:"required"`
}

type ReactData struct {
	MessageID string `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type ReactionsData struct {
	MessageID string            `json:"message_id"`
	Reactions map[string]string `json:"reactions"`
}

type NotificationsData struct {
	Notifications []entity.Notification `json:"notifications"`
}

type UnreadData struct {
	HasUnread bool `json:"has_unread"`
}

type ErrorData struct {
	Op      string `json:"op,omitempty"`
	TempID  string `json:"temp_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

// HandleClientMessage decodes one frame and schedules it on the client's
// event loop, so the read pump never waits on the store.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var msg incomingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("WebSocket: failed to unmarshal message from client %s: %v", client.UserID(), err)
		client.send(EventError, "", ErrorData{Code: errors.CodeInvalidArgument, Message: "Invalid message format"})
		return
	}

	logger.Debug("WebSocket: received '%s' from client %s", msg.Type, client.UserID())

	client.enqueue(func() {
		if err := m.dispatch(client, msg); err != nil {
			client.sendError(msg, "", err)
		}
	})
}

func (m *Manager) dispatch(client *Client, msg incomingMessage) error {
	switch msg.Type {
	case MessageTypePing:
		client.send(EventPong, "", nil)
		return nil

	case MessageTypeJoinConversation:
		return m.handleJoin(client, msg.PeerID)

	case MessageTypeLeaveConversation:
		m.handleLeave(client, msg.PeerID)
		return nil

	case MessageTypeSendMessage:
		var data SendMessageData
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		if err := requirePeer(client, msg.PeerID); err != nil {
			return err
		}
		_, err := m.services.Chat.Send(client.ctx, client.Session, usecase.SendMessageInput{
			PeerID:  msg.PeerID,
			Body:    data.Body,
			ReplyTo: data.ReplyTo,
		})
		if err != nil {
			client.sendError(msg, data.TempID, err)
		}
		return nil

	case MessageTypeTyping:
		return m.services.Typing.Keystroke(client.ctx, client.UserID())

	case MessageTypeFocus:
		if j, ok := client.conversations[msg.PeerID]; ok {
			j.session.SetFocused(true)
		}
		return m.services.Presence.Focus(client.ctx, client.UserID())

	case MessageTypeBlur:
		if j, ok := client.conversations[msg.PeerID]; ok {
			j.session.SetFocused(false)
		}
		return m.services.Presence.Blur(client.ctx, client.UserID())

	case MessageTypeMessageVisible:
		var data MessageVisibleData
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		if err := requirePeer(client, msg.PeerID); err != nil {
			return err
		}
		return m.services.Delivery.MarkSeen(client.ctx, client.Session, msg.PeerID, data.MessageID)

	case MessageTypeReact:
		var data ReactData
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		if err := requirePeer(client, msg.PeerID); err != nil {
			return err
		}
		_, err := m.services.Reactions.React(client.ctx, client.Session, msg.PeerID, data.MessageID, data.Emoji)
		return err
	}

	return errors.InvalidArgument("unknown message type " + msg.Type)
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.InvalidArgument("data is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.InvalidArgument("invalid data")
	}
	if err := validate.Struct(v); err != nil {
		return errors.InvalidArgument(err.Error())
	}
	return nil
}

// requirePeer rejects a missing peer and self-conversations.
func requirePeer(client *Client, peerID string) error {
	if peerID == "" {
		return errors.InvalidArgument("peer_id is required")
	}
	if peerID == client.UserID() {
		return errors.InvalidArgument("cannot open a conversation with yourself")
	}
	return nil
}

func (c *Client) sendError(msg incomingMessage, tempID string, err error) {
	code, message := errors.CodeInternal, "An unexpected error occurred"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		code, message = appErr.Code, appErr.Message
	} else {
		logger.Error("WebSocket: %s from %s failed: %v", msg.Type, c.UserID(), err)
	}
	c.send(EventError, msg.PeerID, ErrorData{Op: msg.Type, TempID: tempID, Code: code, Message: message})
}

func (m *Manager) handleJoin(client *Client, peerID string) error {
	if err := requirePeer(client, peerID); err != nil {
		return err
	}
	if _, ok := client.conversations[peerID]; ok {
		return nil
	}

	client.nextJoin++
	id := client.nextJoin
	sink := func(ev usecase.ConversationEvent) {
		client.enqueue(func() {
			j, ok := client.conversations[peerID]
			if !ok || j.id != id {
				return
			}
			switch ev.Kind {
			case usecase.EventMessages:
				client.send(EventMessages, peerID, ev.Messages)
				m.watchReactions(client, peerID, j, ev.Messages)
			case usecase.EventPresence:
				client.send(EventPresence, peerID, ev.Presence)
			}
		})
	}

	session, err := m.services.Chat.Conversation(client.ctx, client.Session, peerID, sink)
	if err != nil {
		return err
	}
	client.conversations[peerID] = &joined{id: id, session: session, watching: make(map[string]struct{})}
	logger.Debug("WebSocket: %s joined conversation %s", client.UserID(), entity.ConversationKey(client.UserID(), peerID))
	return nil
}

func (m *Manager) handleLeave(client *Client, peerID string) {
	j, ok := client.conversations[peerID]
	if !ok {
		return
	}
	delete(client.conversations, peerID)
	logger.Debug("WebSocket: %s left conversation %s", client.UserID(), entity.ConversationKey(client.UserID(), peerID))
	// Close waits for the session goroutine, which may be blocked handing us
	// an event.
	go j.close()
}

// watchReactions subscribes to the reactions of every message in the
// snapshot that the conversation is not watching yet. Reactions written from
// any surface reach the client this way.
func (m *Manager) watchReactions(client *Client, peerID string, j *joined, msgs []entity.Message) {
	mailbox, err := entity.MailboxPath(client.UserID(), peerID)
	if err != nil {
		return
	}

	for _, msg := range msgs {
		if _, ok := j.watching[msg.MessageID]; ok {
			continue
		}
		sub, err := m.services.Reactions.Subscribe(client.ctx, mailbox, msg.MessageID)
		if err != nil {
			logger.Warn("WebSocket: failed to watch reactions for %s: %v", msg.MessageID, err)
			continue
		}
		j.watching[msg.MessageID] = struct{}{}
		j.reactions.Add(sub)
		go forwardReactions(client, peerID, j.id, msg.MessageID, sub)
	}
}

// forwardReactions pushes each reaction set of one message. An empty initial
// set is not sent.
func forwardReactions(client *Client, peerID string, id uint64, messageID string, sub *stream.Subscription[entity.ReactionSet]) {
	first := true
	for set := range sub.C {
		if first && len(set) == 0 {
			first = false
			continue
		}
		first = false

		emojis := set.Emojis()
		client.enqueue(func() {
			if j, ok := client.conversations[peerID]; !ok || j.id != id {
				return
			}
			client.send(EventReactions, peerID, ReactionsData{MessageID: messageID, Reactions: emojis})
		})
	}
}

func (m *Manager) onConnect(client *Client) {
	if err := m.services.Presence.Publish(client.ctx, client.UserID(), false); err != nil {
		logger.Warn("WebSocket: failed to publish presence for %s: %v", client.UserID(), err)
	}

	list, err := m.services.Notifications.Subscribe(client.ctx, client.UserID())
	if err != nil {
		logger.Warn("WebSocket: notifications unavailable for %s: %v", client.UserID(), err)
		return
	}
	client.watchers.Add(list)

	unread, err := m.services.Notifications.SubscribeUnread(client.ctx, client.UserID())
	if err != nil {
		logger.Warn("WebSocket: unread flag unavailable for %s: %v", client.UserID(), err)
	} else {
		client.watchers.Add(unread)
		go func() {
			for has := range unread.C {
				has := has
				client.enqueue(func() {
					client.send(EventUnread, "", UnreadData{HasUnread: has})
				})
			}
		}()
	}

	go func() {
		for items := range list.C {
			items := items
			client.enqueue(func() {
				client.send(EventNotifications, "", NotificationsData{Notifications: items})
			})
		}
	}()
}

// onDisconnect closes every conversation of the client and, when it was the
// user's last connection, publishes them offline.
func (m *Manager) onDisconnect(client *Client, lastConnection bool) {
	open := make([]*joined, 0, len(client.conversations))
	for peerID, j := range client.conversations {
		open = append(open, j)
		delete(client.conversations, peerID)
	}
	go func() {
		for _, j := range open {
			j.close()
		}
		client.watchers.Cancel()
	}()

	if lastConnection {
		m.services.Typing.Stop(client.UserID())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.services.Presence.SetOffline(ctx, client.UserID()); err != nil {
			logger.Warn("WebSocket: failed to publish offline for %s: %v", client.UserID(), err)
		}
	}

	client.shutdown()
}
