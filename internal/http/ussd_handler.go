package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heal-engine/internal/service"
)

// UssdHandler exposes the gateway webhook. The gateway expects a plain-text
// body starting with CON or END, never JSON and never an error status.
type UssdHandler struct {
	logger  *zap.Logger
	ussdSvc *service.UssdService
}

func NewUssdHandler(logger *zap.Logger, ussdSvc *service.UssdService) *UssdHandler {
	return &UssdHandler{logger: logger, ussdSvc: ussdSvc}
}

type ussdRequest struct {
	SessionID   string `json:"sessionId" form:"sessionId"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Text        string `json:"text" form:"text"`
}

// Handle processes POST /ussd. Africa's Talking posts form-encoded bodies;
// JSON is accepted too for local testing.
func (h *UssdHandler) Handle(c *gin.Context) {
	var req ussdRequest

	contentType := c.ContentType()
	if strings.Contains(contentType, "json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid ussd request", zap.Error(err))
			c.String(http.StatusOK, "END Invalid request.")
			return
		}
	} else {
		req.SessionID = c.PostForm("sessionId")
		req.PhoneNumber = c.PostForm("phoneNumber")
		req.Text = c.PostForm("text")
	}

	output := h.ussdSvc.Handle(c.Request.Context(), req.SessionID, req.PhoneNumber, req.Text)
	c.String(http.StatusOK, output)
}
