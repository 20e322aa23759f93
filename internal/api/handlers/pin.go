// Package handlers provides HTTP request handlers for the Parkgate API.
// It includes handlers for PIN issuance and verification, vendor webhook
// processing, and smart lock administration, implementing RESTful endpoints
// with request validation.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dogparkjp/parkgate/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PinHandler handles PIN issuance and verification
type PinHandler struct {
	pinService *service.PinService
	logger     *zap.Logger
}

// NewPinHandler creates a new PIN handler
func NewPinHandler(pinService *service.PinService, logger *zap.Logger) *PinHandler {
	return &PinHandler{
		pinService: pinService,
		logger:     logger,
	}
}

// IssuePinRequest represents a PIN issuance request
type IssuePinRequest struct {
	LockID          string     `json:"lock_id" binding:"required"`
	Purpose         string     `json:"purpose"`
	ExpiryMinutes   int        `json:"expiry_minutes"`
	ReservationType string     `json:"reservation_type"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DogIDs          []string   `json:"dog_ids"`
}

// IssuePin issues a new PIN for the authenticated user
// @Summary Issue a PIN
// @Description Issue a one-time PIN for a smart lock
// @Accept json
// @Produce json
// @Param request body IssuePinRequest true "PIN request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/pins [post]
func (h *PinHandler) IssuePin(c *gin.Context) {
	var req IssuePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	userID := c.GetString("user_id")

	result, err := h.pinService.IssuePin(c.Request.Context(), &service.IssuePinRequest{
		UserID:          userID,
		LockID:          req.LockID,
		Purpose:         req.Purpose,
		ExpiryMinutes:   req.ExpiryMinutes,
		ReservationType: req.ReservationType,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DogIDs:          req.DogIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"success":    true,
		"pin_code":   result.PinCode,
		"expires_at": result.ExpiresAt,
		"park_name":  result.ParkName,
		"demo_mode":  result.DemoMode,
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	if result.TTLockPinID != 0 {
		resp["ttlock_pin_id"] = result.TTLockPinID
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPinRequest represents a PIN verification request
type VerifyPinRequest struct {
	LockID  string `json:"lock_id" binding:"required"`
	Pin     string `json:"pin" binding:"required"`
	Purpose string `json:"purpose"`
}

// VerifyPin redeems a PIN presented at a lock
// @Summary Verify a PIN
// @Description Redeem a PIN and record the entry or exit
// @Accept json
// @Produce json
// @Param request body VerifyPinRequest true "Verification request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/pins/verify [post]
func (h *PinHandler) VerifyPin(c *gin.Context) {
	var req VerifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.pinService.VerifyPin(req.LockID, req.Pin, req.Purpose)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   result.Message,
		"park_id":   result.ParkID,
		"occupancy": result.Occupancy,
	})
}

// respondError maps domain errors onto HTTP statuses
func (h *PinHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLockNotFound), errors.Is(err, service.ErrPinAccessDisabled):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrAccessDenied), errors.Is(err, service.ErrVaccineNotApproved):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrDuplicateSession):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrInvalidPin), errors.Is(err, service.ErrInvalidPurpose):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("PIN operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}
