package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/response"
)

const maxMediaSize = 25 * 1024 * 1024

type ChatHandler struct {
	chatUseCase     *usecase.ChatUseCase
	deliveryUseCase *usecase.DeliveryUseCase
	reactionUseCase *usecase.ReactionUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, deliveryUseCase *usecase.DeliveryUseCase, reactionUseCase *usecase.ReactionUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase:     chatUseCase,
		deliveryUseCase: deliveryUseCase,
		reactionUseCase: reactionUseCase,
	}
}

type replyRequest struct {
	Body     *string `json:"body"`
	Kind     string  `json:"kind" validate:"required,oneof=text image video audio"`
	SenderID string  `json:"sender_id" validate:"required"`
}

type sendMessageRequest struct {
	Body    string        `json:"body" validate:"max=4000"`
	ReplyTo *replyRequest `json:"reply_to,omitempty"`
}

type reactRequest struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}

func (r *replyRequest) toEntity() *entity.ReplyRef {
	if r == nil {
		return nil
	}
	return &entity.ReplyRef{Body: r.Body, Kind: entity.MessageKind(r.Kind), SenderID: r.SenderID}
}

// SendMessage accepts JSON for text messages or multipart/form-data with a
// "media" file (and optional "reply_to" JSON field) for media messages.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	peerID, err := peerParam(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return h.sendMedia(c, session, peerID)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidArgument("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.Send(c.Request().Context(), session, usecase.SendMessageInput{
		PeerID:  peerID,
		Body:    req.Body,
		ReplyTo: req.ReplyTo.toEntity(),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) sendMedia(c echo.Context, session entity.Session, peerID string) error {
	file, err := c.FormFile("media")
	if err != nil {
		return response.Error(c, errors.InvalidArgument("Missing or invalid media file"))
	}
	if file.Size > maxMediaSize {
		return response.Error(c, errors.InvalidArgument(fmt.Sprintf("Media exceeds maximum size (%dMB)", maxMediaSize/(1024*1024))))
	}

	var reply *replyRequest
	if raw := c.FormValue("reply_to"); raw != "" {
		reply = &replyRequest{}
		if err := json.Unmarshal([]byte(raw), reply); err != nil {
			return response.Error(c, errors.InvalidArgument("Invalid reply_to"))
		}
		if err := c.Validate(reply); err != nil {
			return response.Error(c, err)
		}
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read media", err))
	}
	defer src.Close()

	logger.Debug("media upload from %s: %s (%d bytes, %s)", session.UserID, file.Filename, file.Size, file.Header.Get("Content-Type"))

	message, err := h.chatUseCase.Send(c.Request().Context(), session, usecase.SendMessageInput{
		PeerID:    peerID,
		Body:      c.FormValue("body"),
		Media:     src,
		MediaType: file.Header.Get("Content-Type"),
		ReplyTo:   reply.toEntity(),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	peerID, err := peerParam(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.chatUseCase.List(c.Request().Context(), session, peerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

func (h *ChatHandler) GetMessage(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	peerID, err := peerParam(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.Get(c.Request().Context(), session, peerID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) MarkSeen(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	peerID, err := peerParam(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.deliveryUseCase.MarkSeen(c.Request().Context(), session, peerID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": string(entity.StateSeen)})
}

func (h *ChatHandler) React(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	peerID, err := peerParam(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	var req reactRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidArgument("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	reaction, err := h.reactionUseCase.React(c.Request().Context(), session, peerID, c.Param("id"), req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, reaction)
}

func (h *ChatHandler) GetReactions(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	peerID, err := peerParam(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	reactions, err := h.reactionUseCase.List(c.Request().Context(), session, peerID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, reactions.Emojis())
}
