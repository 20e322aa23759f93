package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/database/models"
	"github.com/dogparkjp/parkgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockHandler handles smart lock administration and park occupancy
type LockHandler struct {
	db     *database.Database
	stats  service.Stats
	logger *zap.Logger
}

// NewLockHandler creates a new lock handler
func NewLockHandler(db *database.Database, stats service.Stats, logger *zap.Logger) *LockHandler {
	return &LockHandler{
		db:     db,
		stats:  stats,
		logger: logger,
	}
}

// ListLocks returns all registered smart locks
// @Summary List smart locks
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/locks [get]
func (h *LockHandler) ListLocks(c *gin.Context) {
	locks, err := h.db.ListLocks()
	if err != nil {
		h.logger.Error("Failed to list locks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list locks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"locks":   locks,
	})
}

// CreateLockRequest represents a lock registration request
type CreateLockRequest struct {
	LockID       string `json:"lock_id" binding:"required"`
	ParkID       string `json:"park_id" binding:"required"`
	ParkName     string `json:"park_name" binding:"required"`
	TTLockLockID *int64 `json:"ttlock_lock_id"`
	PinEnabled   *bool  `json:"pin_enabled"`
}

// CreateLock registers a new smart lock
// @Summary Register a smart lock
// @Accept json
// @Produce json
// @Param request body CreateLockRequest true "Lock registration"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/locks [post]
func (h *LockHandler) CreateLock(c *gin.Context) {
	var req CreateLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	lock := &models.SmartLock{
		ID:         uuid.New().String(),
		LockID:     req.LockID,
		ParkID:     req.ParkID,
		ParkName:   req.ParkName,
		PinEnabled: true,
		CreatedAt:  time.Now().UTC(),
	}
	if req.TTLockLockID != nil {
		lock.TTLockLockID = sql.NullInt64{Int64: *req.TTLockLockID, Valid: true}
	}
	if req.PinEnabled != nil {
		lock.PinEnabled = *req.PinEnabled
	}

	if err := h.db.CreateLock(lock); err != nil {
		h.logger.Error("Failed to create lock", zap.String("lock_id", req.LockID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create lock"})
		return
	}

	h.logger.Info("Smart lock registered",
		zap.String("lock_id", req.LockID),
		zap.String("park_id", req.ParkID),
	)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"lock":    lock,
	})
}

// SetLockEnabledRequest toggles PIN access on a lock
type SetLockEnabledRequest struct {
	PinEnabled *bool `json:"pin_enabled" binding:"required"`
}

// SetLockEnabled enables or disables PIN access for a lock
// @Summary Toggle PIN access on a lock
// @Accept json
// @Produce json
// @Param id path string true "Lock ID"
// @Param request body SetLockEnabledRequest true "Enabled flag"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/locks/{id}/enabled [put]
func (h *LockHandler) SetLockEnabled(c *gin.Context) {
	lockID := c.Param("id")

	var req SetLockEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.db.SetLockPinEnabled(lockID, *req.PinEnabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "smart lock not found"})
			return
		}
		h.logger.Error("Failed to update lock", zap.String("lock_id", lockID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update lock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"lock_id":     lockID,
		"pin_enabled": *req.PinEnabled,
	})
}

// GetParkOccupancy returns the current occupancy of a park
// @Summary Get park occupancy
// @Produce json
// @Param id path string true "Park ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/parks/{id}/occupancy [get]
func (h *LockHandler) GetParkOccupancy(c *gin.Context) {
	parkID := c.Param("id")

	occupancy, err := h.stats.Occupancy(parkID)
	if err != nil {
		h.logger.Error("Failed to get occupancy", zap.String("park_id", parkID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to get occupancy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"park_id":   parkID,
		"occupancy": occupancy,
	})
}
