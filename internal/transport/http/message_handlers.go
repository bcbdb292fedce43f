package http

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/proto"
	"github.com/vovakirdan/burnroom/internal/store"
	"github.com/vovakirdan/burnroom/internal/utils"
)

// MessageHandlers provides HTTP handlers for room messages.
type MessageHandlers struct {
	store     store.MessageStore
	pub       Publisher
	metrics   *metrics.Metrics
	clock     clock.Clock
	maxLength int
	log       *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance. maxLength
// caps message text in characters; 0 means no cap.
func NewMessageHandlers(st store.MessageStore, pub Publisher, m *metrics.Metrics, clk clock.Clock, maxLength int, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:     st,
		pub:       pub,
		metrics:   m,
		clock:     clk,
		maxLength: maxLength,
		log:       logger,
	}
}

// ListMessages returns a room's messages oldest first.
// GET /api/messages?roomId=
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.MessageDTO, 0, len(messages))
	for i := range messages {
		response = append(response, toDTO(&messages[i]))
	}

	h.log.Debug().Str("room_id", roomID).Int("message_count", len(response)).Msg("messages listed")
	c.JSON(http.StatusOK, proto.MessagesResponse{Messages: response})
}

// PostMessage appends a message to a room and tells subscribers.
// POST /api/messages?roomId=
func (h *MessageHandlers) PostMessage(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req proto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.Sender) == "" {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "sender and text are required"})
		return
	}
	if h.maxLength > 0 && utf8.RuneCountInString(req.Text) > h.maxLength {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "message is too long"})
		return
	}

	msg := &store.Message{
		ID:        utils.NewMessageID(),
		RoomID:    roomID,
		Sender:    req.Sender,
		Text:      req.Text,
		CreatedAt: h.clock.Now(),
	}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.metrics.MessagesTotal.Inc()
	publish(c.Request.Context(), h.pub, h.metrics, roomID, proto.EventChatMessage, h.log)
	h.log.Debug().Str("room_id", roomID).Str("message_id", msg.ID).Msg("message stored")
	c.JSON(http.StatusCreated, toDTO(msg))
}

func toDTO(msg *store.Message) proto.MessageDTO {
	return proto.MessageDTO{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt.UnixMilli(),
		RoomID:    msg.RoomID,
	}
}
