package service

import (
	"time"

	"github.com/dogparkjp/parkgate/internal/database"
)

// AccessChecker decides whether a user may access a park right now. It wraps
// the platform's authorization surface (subscriptions, day passes,
// reservations); this core does not reimplement billing logic.
type AccessChecker interface {
	HasParkAccess(userID, parkID string, at time.Time) (bool, error)
}

// Stats is the occupancy and visit-statistics surface consumed by the PIN
// verifier and the access-log reconciler.
type Stats interface {
	// Occupancy returns the current number of users inside the park.
	Occupancy(parkID string) (int, error)
	// ProcessEntry records a confirmed entry for community statistics.
	ProcessEntry(userID, dogID, parkID string, usedAt time.Time) error
	// CalculateDuration computes the stay length ending at exitTime.
	CalculateDuration(userID, parkID string, exitTime time.Time) (time.Duration, error)
}

// DatabaseAccessChecker answers access checks from the entitlements table
type DatabaseAccessChecker struct {
	db *database.Database
}

// NewDatabaseAccessChecker creates a database-backed access checker
func NewDatabaseAccessChecker(db *database.Database) *DatabaseAccessChecker {
	return &DatabaseAccessChecker{db: db}
}

// HasParkAccess reports whether any entitlement covers the given instant
func (c *DatabaseAccessChecker) HasParkAccess(userID, parkID string, at time.Time) (bool, error) {
	return c.db.HasParkAccess(userID, parkID, at)
}

// DatabaseStats derives occupancy and durations from reconciled access logs
type DatabaseStats struct {
	db *database.Database
}

// NewDatabaseStats creates a database-backed stats provider
func NewDatabaseStats(db *database.Database) *DatabaseStats {
	return &DatabaseStats{db: db}
}

// Occupancy counts users currently inside the park
func (s *DatabaseStats) Occupancy(parkID string) (int, error) {
	return s.db.CountOccupancy(parkID)
}

// ProcessEntry bumps the park's daily visit counter
func (s *DatabaseStats) ProcessEntry(userID, dogID, parkID string, usedAt time.Time) error {
	statDate := usedAt.UTC().Format("2006-01-02")
	return s.db.IncrementDailyEntry(parkID, statDate, time.Now())
}

// CalculateDuration measures from the user's latest confirmed entry at the
// park to the given exit time.
func (s *DatabaseStats) CalculateDuration(userID, parkID string, exitTime time.Time) (time.Duration, error) {
	enteredAt, err := s.db.LatestEnteredAt(userID, parkID)
	if err != nil {
		return 0, err
	}

	duration := exitTime.Sub(enteredAt)
	if duration < 0 {
		duration = 0
	}
	return duration, nil
}
