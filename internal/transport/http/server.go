package http

import (
	stdhttp "net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/broker"
	"github.com/vovakirdan/burnroom/internal/config"
	"github.com/vovakirdan/burnroom/internal/core"
	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/store"
)

// Deps are the components the HTTP layer serves.
type Deps struct {
	Hub     *core.Hub
	Store   store.Store
	Broker  broker.Broker
	Metrics *metrics.Metrics
	// Clock judges room deadlines. Defaults to wall time.
	Clock clock.Clock
}

// NewServer builds an HTTP server with REST, realtime and metrics routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(deps.Metrics.GinMiddleware())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(deps.Hub, deps.Metrics, cfg.MaxMessageBytes, logger)))

	limit := RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	rooms := NewRoomHandlers(deps.Store, deps.Broker, deps.Metrics, deps.Clock, cfg.RoomTTL, logger)
	messages := NewMessageHandlers(deps.Store, deps.Broker, deps.Metrics, deps.Clock, cfg.MaxMessageLength, logger)

	api := router.Group("/api")
	{
		api.POST("/rooms/create", limit, rooms.CreateRoom)
		api.GET("/rooms/ttl", rooms.TTL)
		api.DELETE("/rooms", limit, rooms.DestroyRoom)

		api.GET("/messages", messages.ListMessages)
		api.POST("/messages", limit, messages.PostMessage)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
