package handlers

import (
	"net/http"
	"time"

	"github.com/dogparkjp/parkgate/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler handles vendor unlock notifications
type WebhookHandler struct {
	accessLogService *service.AccessLogService
	logger           *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(accessLogService *service.AccessLogService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		accessLogService: accessLogService,
		logger:           logger,
	}
}

// TTLockEventRequest is the unlock notification payload sent by the TTLock
// cloud. Field names and the epoch-millisecond date follow the vendor wire
// format.
type TTLockEventRequest struct {
	LockID      string `json:"lockId" binding:"required"`
	KeyboardPwd string `json:"keyboardPwd" binding:"required"`
	RecordType  *int   `json:"recordType" binding:"required"`
	Date        int64  `json:"date" binding:"required"`
	Username    string `json:"username"`
}

// HandleTTLockEvent processes an unlock notification
// @Summary Process TTLock unlock event
// @Description Reconcile a vendor unlock event against its access log
// @Accept json
// @Produce json
// @Param request body TTLockEventRequest true "Unlock event"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/webhooks/ttlock [post]
func (h *WebhookHandler) HandleTTLockEvent(c *gin.Context) {
	var req TTLockEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	event := &service.UnlockEvent{
		LockID:      req.LockID,
		KeyboardPwd: req.KeyboardPwd,
		RecordType:  *req.RecordType,
		Timestamp:   time.UnixMilli(req.Date).UTC(),
		Username:    req.Username,
	}

	message, err := h.accessLogService.ProcessUnlockEvent(event)
	if err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("lock_id", req.LockID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
