package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heal-engine/internal/service"
)

// ChatHandler exposes the web channel endpoints.
type ChatHandler struct {
	logger  *zap.Logger
	chatSvc *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chatSvc: chatSvc}
}

// SendMessage handles POST /chat/message.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ownerKey, ok := OwnerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		SessionID   string `json:"session_id"`
		Content     string `json:"content"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.chatSvc.SendMessage(c.Request.Context(), ownerKey, req.SessionID, req.Content, req.MessageType)
	if err != nil {
		h.writeServiceError(c, err, "send message failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":      result.Session,
		"user_message": result.UserMessage,
		"ai_message":   result.AIMessage,
		"response":     result.Response,
	})
}

// GetHistory handles GET /chat/history.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	ownerKey, ok := OwnerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	messages, err := h.chatSvc.History(c.Request.Context(), ownerKey, sessionID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.writeServiceError(c, err, "get history failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListSessions handles GET /chat/sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	ownerKey, ok := OwnerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	sessions, err := h.chatSvc.ListSessions(c.Request.Context(), ownerKey, intQuery(c, "limit", 20), intQuery(c, "offset", 0))
	if err != nil {
		h.writeServiceError(c, err, "list sessions failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// DeleteSession handles DELETE /chat/session/:id.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	ownerKey, ok := OwnerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	if err := h.chatSvc.DeleteSession(c.Request.Context(), ownerKey, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "delete session failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

func (h *ChatHandler) writeServiceError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is required"})
	case errors.Is(err, service.ErrInvalidMessageType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message type"})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
