package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/database/models"
)

// EligibilityService decides whether a user may open a given lock right now.
// It is read-only: lock state, the delegated park-access check, and for entry
// the vaccine gate.
type EligibilityService struct {
	db     *database.Database
	access AccessChecker
}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService(db *database.Database, access AccessChecker) *EligibilityService {
	return &EligibilityService{
		db:     db,
		access: access,
	}
}

// CheckAccess verifies that the user may open the lock for the given purpose
// and returns the lock record on success.
func (s *EligibilityService) CheckAccess(userID, lockID, purpose string, now time.Time) (*models.SmartLock, error) {
	lock, err := s.db.GetLockByLockID(lockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	if !lock.PinEnabled {
		return nil, ErrPinAccessDisabled
	}

	hasAccess, err := s.access.HasParkAccess(userID, lock.ParkID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check park access: %w", err)
	}
	if !hasAccess {
		return nil, ErrAccessDenied
	}

	// Entry additionally requires an approved, unexpired vaccine
	// certification for at least one owned dog. Exit never blocks on it;
	// a user who got in must always be able to get out.
	if purpose == models.PurposeEntry {
		ok, err := s.HasApprovedVaccination(userID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to check vaccine certifications: %w", err)
		}
		if !ok {
			return nil, ErrVaccineNotApproved
		}
	}

	return lock, nil
}

// HasApprovedVaccination reports whether at least one of the user's dogs has
// an approved certification whose rabies and combo expiry dates (when
// present) are not in the past. A missing expiry date is treated as
// non-expiring.
func (s *EligibilityService) HasApprovedVaccination(userID string, now time.Time) (bool, error) {
	dogs, err := s.db.ListDogsWithCertifications(userID)
	if err != nil {
		return false, err
	}

	for _, dog := range dogs {
		cert := dog.Certification
		if cert == nil || cert.Status != models.CertApproved {
			continue
		}
		if cert.RabiesExpiryDate.Valid && cert.RabiesExpiryDate.Time.Before(now) {
			continue
		}
		if cert.ComboExpiryDate.Valid && cert.ComboExpiryDate.Time.Before(now) {
			continue
		}
		return true, nil
	}

	return false, nil
}
