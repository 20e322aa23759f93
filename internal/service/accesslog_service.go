package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/database/models"
	"github.com/dogparkjp/parkgate/internal/ttlock"
	"go.uber.org/zap"
)

// AccessLogService reconciles vendor unlock events against open access logs
type AccessLogService struct {
	db     *database.Database
	stats  Stats
	logger *zap.Logger
}

// NewAccessLogService creates a new access-log reconciliation service
func NewAccessLogService(db *database.Database, stats Stats, logger *zap.Logger) *AccessLogService {
	return &AccessLogService{
		db:     db,
		stats:  stats,
		logger: logger,
	}
}

// UnlockEvent is one unlock notification from the vendor webhook
type UnlockEvent struct {
	LockID      string
	KeyboardPwd string
	RecordType  int
	Timestamp   time.Time
	Username    string
}

// ProcessUnlockEvent matches a vendor unlock event to its open access log and
// advances the state machine: issued becomes entered, exit_requested becomes
// exited. Every non-matching case is an acknowledged no-op so the vendor does
// not retry; only infrastructure failures return an error. Redelivered events
// hit the used_at guard and are acknowledged idempotently.
func (s *AccessLogService) ProcessUnlockEvent(event *UnlockEvent) (string, error) {
	if event.RecordType != ttlock.RecordTypeKeyboardUnlock {
		return fmt.Sprintf("event type %d logged but not processed", event.RecordType), nil
	}

	log, err := s.db.FindOpenAccessLog(event.KeyboardPwd, event.LockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("No matching access log for unlock event",
				zap.String("lock_id", event.LockID),
			)
			return "no matching access log found", nil
		}
		return "", fmt.Errorf("failed to find access log: %w", err)
	}

	if log.UsedAt.Valid {
		return "access log already processed", nil
	}

	if event.Timestamp.After(log.ExpiresAt) {
		s.logger.Info("Unlock event after PIN expiry ignored",
			zap.String("access_log_id", log.ID),
			zap.Time("event_at", event.Timestamp),
			zap.Time("expired_at", log.ExpiresAt),
		)
		return "PIN already expired", nil
	}

	newStatus := s.nextStatus(log)
	now := time.Now().UTC()

	reconciled, err := s.db.ReconcileAccessLog(log.ID, newStatus, event.Timestamp, now)
	if err != nil {
		return "", fmt.Errorf("failed to update access log: %w", err)
	}
	if !reconciled {
		// Lost the race against a concurrent delivery of the same event.
		return "access log already processed", nil
	}

	s.logger.Info("Access log reconciled",
		zap.String("access_log_id", log.ID),
		zap.String("user_id", log.UserID),
		zap.String("park_id", log.ParkID),
		zap.String("status", newStatus),
	)

	switch newStatus {
	case models.StatusEntered:
		s.recordEntry(log, event.Timestamp)
	case models.StatusExited:
		s.recordExit(log, event.Timestamp)
	}

	return fmt.Sprintf("access log updated to %s", newStatus), nil
}

// nextStatus picks the target state for a matched log. Open logs are only
// ever issued or exit_requested; anything else means the row was mutated out
// of band, so fall back to deriving the state from the PIN type.
func (s *AccessLogService) nextStatus(log *models.AccessLog) string {
	switch log.Status {
	case models.StatusIssued:
		return models.StatusEntered
	case models.StatusExitRequested:
		return models.StatusExited
	}

	s.logger.Warn("Unexpected access log status, deriving from PIN type",
		zap.String("access_log_id", log.ID),
		zap.String("status", log.Status),
		zap.String("pin_type", log.PinType),
	)
	if log.PinType == models.PurposeExit {
		return models.StatusExited
	}
	return models.StatusEntered
}

// recordEntry feeds the confirmed entry into community statistics, one call
// per dog on the visit. Statistics failures are logged, never fatal; the
// reconciliation itself already committed.
func (s *AccessLogService) recordEntry(log *models.AccessLog, usedAt time.Time) {
	var dogIDs []string
	if log.DogIDsJSON != "" {
		if err := json.Unmarshal([]byte(log.DogIDsJSON), &dogIDs); err != nil {
			s.logger.Warn("Failed to parse dog IDs on access log",
				zap.String("access_log_id", log.ID),
				zap.Error(err),
			)
			return
		}
	}
	if len(dogIDs) == 0 {
		dogIDs = []string{""}
	}

	for _, dogID := range dogIDs {
		if err := s.stats.ProcessEntry(log.UserID, dogID, log.ParkID, usedAt); err != nil {
			s.logger.Warn("Failed to record entry statistics",
				zap.String("access_log_id", log.ID),
				zap.String("dog_id", dogID),
				zap.Error(err),
			)
		}
	}
}

// recordExit computes and stores the visit duration. Like entry statistics,
// failures here are logged and swallowed.
func (s *AccessLogService) recordExit(log *models.AccessLog, usedAt time.Time) {
	duration, err := s.stats.CalculateDuration(log.UserID, log.ParkID, usedAt)
	if err != nil {
		s.logger.Warn("Failed to calculate visit duration",
			zap.String("access_log_id", log.ID),
			zap.Error(err),
		)
		return
	}

	if err := s.db.SetAccessLogDuration(log.ID, duration.Milliseconds(), time.Now().UTC()); err != nil {
		s.logger.Warn("Failed to store visit duration",
			zap.String("access_log_id", log.ID),
			zap.Error(err),
		)
	}
}
