package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/database/models"
	"github.com/dogparkjp/parkgate/internal/pincode"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationWholeFacility marks a reservation covering the entire facility;
// its PIN validity window is the reservation window rather than the default
// few minutes.
const ReservationWholeFacility = "whole_facility"

// LockProvisioner programs codes onto physical locks. The vendor-backed
// implementation is ttlock.Client; an unconfigured client leaves issuance in
// demo mode.
type LockProvisioner interface {
	Configured() bool
	AddKeyboardPassword(ctx context.Context, lockID int64, password string, start, end time.Time, name string) (int64, error)
}

// PinService issues and verifies PIN codes
type PinService struct {
	db          *database.Database
	eligibility *EligibilityService
	vendor      LockProvisioner
	stats       Stats
	cfg         *config.Config
	logger      *zap.Logger
}

// NewPinService creates a new PIN service
func NewPinService(db *database.Database, eligibility *EligibilityService, vendor LockProvisioner, stats Stats, cfg *config.Config, logger *zap.Logger) *PinService {
	return &PinService{
		db:          db,
		eligibility: eligibility,
		vendor:      vendor,
		stats:       stats,
		cfg:         cfg,
		logger:      logger,
	}
}

// IssuePinRequest represents a request to issue a PIN
type IssuePinRequest struct {
	UserID          string
	LockID          string
	Purpose         string
	ExpiryMinutes   int
	ReservationType string
	StartTime       *time.Time
	EndTime         *time.Time
	DogIDs          []string
}

// IssuePinResult is returned to the caller for display
type IssuePinResult struct {
	PinCode     string
	ExpiresAt   time.Time
	ParkName    string
	DemoMode    bool
	Warning     string
	TTLockPinID int64
}

// IssuePin checks eligibility, generates a code with its validity window,
// attempts vendor programming, and persists the PIN together with its
// access-log entry in one transaction. Vendor failures never block issuance;
// they degrade the result to demo mode with a warning.
func (s *PinService) IssuePin(ctx context.Context, req *IssuePinRequest) (*IssuePinResult, error) {
	if req.Purpose == "" {
		req.Purpose = models.PurposeEntry
	}
	if req.Purpose != models.PurposeEntry && req.Purpose != models.PurposeExit {
		return nil, ErrInvalidPurpose
	}

	now := time.Now().UTC()

	lock, err := s.eligibility.CheckAccess(req.UserID, req.LockID, req.Purpose, now)
	if err != nil {
		return nil, err
	}

	// Fail fast before touching the vendor; the authoritative check runs
	// again inside the insert transaction.
	if req.Purpose == models.PurposeEntry {
		if _, err := s.db.GetActiveEntryPin(req.UserID, req.LockID, now); err == nil {
			return nil, ErrDuplicateSession
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check active PINs: %w", err)
		}
	}

	start, end := s.validityWindow(req, now)

	code, err := pincode.Generate(s.cfg.Pin.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PIN code: %w", err)
	}

	result := &IssuePinResult{
		PinCode:   code,
		ExpiresAt: end,
		ParkName:  lock.ParkName,
	}

	var keyboardPwdID sql.NullInt64
	if lock.TTLockLockID.Valid && s.vendor != nil && s.vendor.Configured() {
		name := fmt.Sprintf("%s - %s", s.cfg.Pin.DisplayName, now.Format("2006-01-02 15:04"))
		pwdID, err := s.vendor.AddKeyboardPassword(ctx, lock.TTLockLockID.Int64, code, start, end, name)
		if err != nil {
			s.logger.Warn("Vendor PIN registration failed, falling back to demo mode",
				zap.String("lock_id", req.LockID),
				zap.Error(err),
			)
			result.DemoMode = true
			result.Warning = "lock vendor unreachable; PIN issued in demo mode"
		} else {
			keyboardPwdID = sql.NullInt64{Int64: pwdID, Valid: true}
			result.TTLockPinID = pwdID
		}
	} else {
		result.DemoMode = true
	}

	dogIDsJSON, err := json.Marshal(req.DogIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dog IDs: %w", err)
	}

	status := models.StatusIssued
	if req.Purpose == models.PurposeExit {
		status = models.StatusExitRequested
	}

	pin := &models.Pin{
		ID:                  uuid.New().String(),
		LockID:              req.LockID,
		UserID:              req.UserID,
		PinCode:             code,
		PinHash:             pincode.Hash(code),
		Purpose:             req.Purpose,
		CreatedAt:           now,
		ExpiresAt:           end,
		IsUsed:              false,
		TTLockKeyboardPwdID: keyboardPwdID,
	}

	log := &models.AccessLog{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		ParkID:     lock.ParkID,
		DogIDsJSON: string(dogIDsJSON),
		LockID:     req.LockID,
		Pin:        code,
		PinType:    req.Purpose,
		Status:     status,
		IssuedAt:   start,
		ExpiresAt:  end,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.CreatePinSession(pin, log); err != nil {
		if errors.Is(err, database.ErrActiveEntryExists) {
			return nil, ErrDuplicateSession
		}
		return nil, fmt.Errorf("failed to store PIN: %w", err)
	}

	s.logger.Info("PIN issued",
		zap.String("user_id", req.UserID),
		zap.String("lock_id", req.LockID),
		zap.String("purpose", req.Purpose),
		zap.Time("expires_at", end),
		zap.Bool("demo_mode", result.DemoMode),
	)

	return result, nil
}

// validityWindow computes the PIN's validity window. Whole-facility
// reservations use the explicit reservation window, normalized to UTC;
// everything else gets [now, now + expiry minutes].
func (s *PinService) validityWindow(req *IssuePinRequest, now time.Time) (time.Time, time.Time) {
	if req.ReservationType == ReservationWholeFacility && req.StartTime != nil && req.EndTime != nil {
		return req.StartTime.UTC(), req.EndTime.UTC()
	}

	minutes := req.ExpiryMinutes
	if minutes <= 0 {
		minutes = s.cfg.Pin.DefaultExpiryMinutes
	}
	return now, now.Add(time.Duration(minutes) * time.Minute)
}

// VerifyPinResult is returned on successful synchronous redemption
type VerifyPinResult struct {
	Message   string
	ParkID    string
	Occupancy int
}

// VerifyPin confirms redemption of a PIN when the caller, not the vendor
// webhook, is the source of truth for the unlock. Entry re-checks the
// vaccine gate at verification time, since certificates may have expired
// after issuance. Redemption is exactly-once: the guarded update fails for a
// PIN that was already used.
func (s *PinService) VerifyPin(lockID, code, purpose string) (*VerifyPinResult, error) {
	if purpose == "" {
		purpose = models.PurposeEntry
	}
	if purpose != models.PurposeEntry && purpose != models.PurposeExit {
		return nil, ErrInvalidPurpose
	}

	now := time.Now().UTC()

	pin, err := s.db.GetUnusedPin(lockID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidPin
		}
		return nil, fmt.Errorf("failed to look up PIN: %w", err)
	}

	if now.After(pin.ExpiresAt) {
		return nil, ErrInvalidPin
	}

	if purpose == models.PurposeEntry {
		ok, err := s.eligibility.HasApprovedVaccination(pin.UserID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to check vaccine certifications: %w", err)
		}
		if !ok {
			return nil, ErrVaccineNotApproved
		}
	}

	marked, err := s.db.MarkPinUsed(pin.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark PIN used: %w", err)
	}
	if !marked {
		return nil, ErrInvalidPin
	}

	lock, err := s.db.GetLockByLockID(lockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	occupancy, err := s.stats.Occupancy(lock.ParkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupancy: %w", err)
	}

	message := "entry recorded"
	if purpose == models.PurposeExit {
		message = "exit recorded"
	}

	s.logger.Info("PIN verified",
		zap.String("user_id", pin.UserID),
		zap.String("lock_id", lockID),
		zap.String("purpose", purpose),
	)

	return &VerifyPinResult{
		Message:   message,
		ParkID:    lock.ParkID,
		Occupancy: occupancy,
	}, nil
}
