package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/proto"
)

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// roomIDParam reads the required roomId query parameter and answers 400
// when it is missing.
func roomIDParam(c *gin.Context) (string, bool) {
	roomID := strings.TrimSpace(c.Query("roomId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "roomId is required"})
		return "", false
	}
	return roomID, true
}
