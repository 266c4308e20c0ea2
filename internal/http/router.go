package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires middlewares and routes. The USSD webhook stays outside the
// identity group: the gateway authenticates by source, not by user token, and
// its responses are plain text rather than JSON.
func NewRouter(
	logger *zap.Logger,
	identityJWTSecret string,
	chatH *ChatHandler,
	ussdH *UssdHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/ussd", ussdH.Handle)

	chat := r.Group("/chat", jsonContentTypeMiddleware(), IdentityMiddleware(identityJWTSecret))
	chat.POST("/message", chatH.SendMessage)
	chat.GET("/history", chatH.GetHistory)
	chat.GET("/sessions", chatH.ListSessions)
	chat.DELETE("/session/:id", chatH.DeleteSession)

	return r
}

// zapLoggerMiddleware logs one line per request.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware forces Content-Type: application/json on responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
