package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/proto"
	"github.com/vovakirdan/burnroom/internal/store"
	"github.com/vovakirdan/burnroom/internal/utils"
)

// Publisher announces realtime events on room channels.
type Publisher interface {
	Publish(ctx context.Context, channel, event string) error
}

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	store   store.RoomStore
	pub     Publisher
	metrics *metrics.Metrics
	clock   clock.Clock
	ttl     time.Duration
	log     *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.RoomStore, pub Publisher, m *metrics.Metrics, clk clock.Clock, ttl time.Duration, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store:   st,
		pub:     pub,
		metrics: m,
		clock:   clk,
		ttl:     ttl,
		log:     logger,
	}
}

// CreateRoom handles room creation.
// POST /api/rooms/create
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	room, err := h.store.CreateRoom(c.Request.Context(), utils.NewID(), h.ttl)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.metrics.RoomsCreated.Inc()
	h.log.Info().Str("room_id", room.ID).Time("expires_at", room.ExpiresAt).Msg("room created")
	c.JSON(http.StatusCreated, proto.CreateRoomResponse{RoomID: room.ID})
}

// TTL reports the remaining lifetime of a room. Rooms that are gone have 0.
// GET /api/rooms/ttl?roomId=
func (h *RoomHandlers) TTL(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusOK, proto.TTLResponse{TTL: 0})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, proto.TTLResponse{TTL: room.TTL(h.clock.Now())})
}

// DestroyRoom deletes a room with its messages and tells subscribers.
// DELETE /api/rooms?roomId=
func (h *RoomHandlers) DestroyRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to delete room")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.metrics.RoomsDestroyed.WithLabelValues(metrics.ReasonDestroyed).Inc()
	publish(c.Request.Context(), h.pub, h.metrics, roomID, proto.EventChatDestroy, h.log)
	h.log.Info().Str("room_id", roomID).Str("reason", metrics.ReasonDestroyed).Msg("room destroyed")
	c.JSON(http.StatusOK, gin.H{})
}

// publish announces an event for committed work. It ignores request cancellation.
func publish(ctx context.Context, pub Publisher, m *metrics.Metrics, roomID, event string, logger *zerolog.Logger) {
	if err := pub.Publish(context.WithoutCancel(ctx), roomID, event); err != nil {
		logger.Warn().Err(err).Str("room_id", roomID).Str("event", event).Msg("failed to publish event")
		return
	}
	m.EventsPublished.WithLabelValues(event).Inc()
}
