// Package database provides database connection management, migrations, and data access methods for the parkgate application.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/dogparkjp/parkgate/internal/database/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrActiveEntryExists is returned by CreatePinSession when an unexpired,
// unused entry PIN already exists for the same (user, lock) pair.
var ErrActiveEntryExists = errors.New("active entry PIN already exists")

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
			"migrations/000002_add_daily_stats.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
			"migrations/000002_add_daily_stats.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		lines := strings.Split(string(content), "\n")
		var currentStmt strings.Builder

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				// Ignore "already exists" errors for idempotent migrations
				if !strings.Contains(err.Error(), "duplicate column") && !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// Lock operations

// CreateLock provisions a new smart lock
func (d *Database) CreateLock(lock *models.SmartLock) error {
	query := `INSERT INTO smart_locks (id, lock_id, park_id, park_name, ttlock_lock_id, pin_enabled, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO smart_locks (id, lock_id, park_id, park_name, ttlock_lock_id, pin_enabled, created_at)
		         VALUES ($1, $2, $3, $4, $5, $6, $7)`
	}

	_, err := d.db.Exec(query,
		lock.ID, lock.LockID, lock.ParkID, lock.ParkName, lock.TTLockLockID, lock.PinEnabled, lock.CreatedAt,
	)
	return err
}

// GetLockByLockID retrieves a smart lock by its external lock identifier
func (d *Database) GetLockByLockID(lockID string) (*models.SmartLock, error) {
	query := `SELECT id, lock_id, park_id, park_name, ttlock_lock_id, pin_enabled, created_at
	          FROM smart_locks WHERE lock_id = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, lock_id, park_id, park_name, ttlock_lock_id, pin_enabled, created_at
		         FROM smart_locks WHERE lock_id = $1`
	}

	var lock models.SmartLock
	err := d.db.QueryRow(query, lockID).Scan(
		&lock.ID, &lock.LockID, &lock.ParkID, &lock.ParkName, &lock.TTLockLockID, &lock.PinEnabled, &lock.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// ListLocks retrieves all smart locks
func (d *Database) ListLocks() ([]*models.SmartLock, error) {
	query := `SELECT id, lock_id, park_id, park_name, ttlock_lock_id, pin_enabled, created_at
	          FROM smart_locks ORDER BY created_at DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locks []*models.SmartLock
	for rows.Next() {
		var lock models.SmartLock
		err := rows.Scan(
			&lock.ID, &lock.LockID, &lock.ParkID, &lock.ParkName, &lock.TTLockLockID, &lock.PinEnabled, &lock.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		locks = append(locks, &lock)
	}

	return locks, rows.Err()
}

// SetLockPinEnabled toggles PIN access for a lock
func (d *Database) SetLockPinEnabled(lockID string, enabled bool) error {
	query := `UPDATE smart_locks SET pin_enabled = ? WHERE lock_id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE smart_locks SET pin_enabled = $1 WHERE lock_id = $2`
	}

	result, err := d.db.Exec(query, enabled, lockID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// PIN operations

// GetActiveEntryPin returns the most recent unused, unexpired entry PIN for
// the (user, lock) pair, or sql.ErrNoRows if none exists.
func (d *Database) GetActiveEntryPin(userID, lockID string, now time.Time) (*models.Pin, error) {
	query := `SELECT id, lock_id, user_id, pin_code, pin_hash, purpose, created_at, expires_at, is_used, ttlock_keyboard_pwd_id
	          FROM smart_lock_pins
	          WHERE user_id = ? AND lock_id = ? AND purpose = 'entry' AND is_used = ? AND expires_at > ?
	          ORDER BY created_at DESC LIMIT 1`
	if d.dbType == "postgres" {
		query = `SELECT id, lock_id, user_id, pin_code, pin_hash, purpose, created_at, expires_at, is_used, ttlock_keyboard_pwd_id
		         FROM smart_lock_pins
		         WHERE user_id = $1 AND lock_id = $2 AND purpose = 'entry' AND is_used = $3 AND expires_at > $4
		         ORDER BY created_at DESC LIMIT 1`
	}

	var pin models.Pin
	err := d.db.QueryRow(query, userID, lockID, false, now).Scan(
		&pin.ID, &pin.LockID, &pin.UserID, &pin.PinCode, &pin.PinHash, &pin.Purpose,
		&pin.CreatedAt, &pin.ExpiresAt, &pin.IsUsed, &pin.TTLockKeyboardPwdID,
	)
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

// CreatePinSession inserts a PIN record and its access-log entry in a single
// transaction. For entry PINs the active-session check runs inside the same
// transaction; on PostgreSQL the lock row is selected FOR UPDATE so that two
// concurrent requests for the same lock serialize. SQLite serializes writers
// on its own (MaxOpenConns is 1).
func (d *Database) CreatePinSession(pin *models.Pin, log *models.AccessLog) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if d.dbType == "postgres" {
		if _, err := tx.Exec(`SELECT id FROM smart_locks WHERE lock_id = $1 FOR UPDATE`, pin.LockID); err != nil {
			return err
		}
	}

	if pin.Purpose == models.PurposeEntry {
		countQuery := `SELECT COUNT(*) FROM smart_lock_pins
		               WHERE user_id = ? AND lock_id = ? AND purpose = 'entry' AND is_used = ? AND expires_at > ?`
		if d.dbType == "postgres" {
			countQuery = `SELECT COUNT(*) FROM smart_lock_pins
			              WHERE user_id = $1 AND lock_id = $2 AND purpose = 'entry' AND is_used = $3 AND expires_at > $4`
		}

		var count int
		if err := tx.QueryRow(countQuery, pin.UserID, pin.LockID, false, pin.CreatedAt).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return ErrActiveEntryExists
		}
	}

	pinQuery := `INSERT INTO smart_lock_pins
	             (id, lock_id, user_id, pin_code, pin_hash, purpose, created_at, expires_at, is_used, ttlock_keyboard_pwd_id)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		pinQuery = `INSERT INTO smart_lock_pins
		            (id, lock_id, user_id, pin_code, pin_hash, purpose, created_at, expires_at, is_used, ttlock_keyboard_pwd_id)
		            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	}

	if _, err := tx.Exec(pinQuery,
		pin.ID, pin.LockID, pin.UserID, pin.PinCode, pin.PinHash, pin.Purpose,
		pin.CreatedAt, pin.ExpiresAt, pin.IsUsed, pin.TTLockKeyboardPwdID,
	); err != nil {
		return err
	}

	logQuery := `INSERT INTO access_logs
	             (id, user_id, park_id, dog_ids_json, lock_id, pin, pin_type, status, issued_at, expires_at, used_at, duration_ms, created_at, updated_at)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		logQuery = `INSERT INTO access_logs
		            (id, user_id, park_id, dog_ids_json, lock_id, pin, pin_type, status, issued_at, expires_at, used_at, duration_ms, created_at, updated_at)
		            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	}

	if _, err := tx.Exec(logQuery,
		log.ID, log.UserID, log.ParkID, log.DogIDsJSON, log.LockID, log.Pin, log.PinType,
		log.Status, log.IssuedAt, log.ExpiresAt, log.UsedAt, log.DurationMS, log.CreatedAt, log.UpdatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetUnusedPin retrieves the most recent unused PIN matching (lock, code)
func (d *Database) GetUnusedPin(lockID, pinCode string) (*models.Pin, error) {
	query := `SELECT id, lock_id, user_id, pin_code, pin_hash, purpose, created_at, expires_at, is_used, ttlock_keyboard_pwd_id
	          FROM smart_lock_pins
	          WHERE lock_id = ? AND pin_code = ? AND is_used = ?
	          ORDER BY created_at DESC LIMIT 1`
	if d.dbType == "postgres" {
		query = `SELECT id, lock_id, user_id, pin_code, pin_hash, purpose, created_at, expires_at, is_used, ttlock_keyboard_pwd_id
		         FROM smart_lock_pins
		         WHERE lock_id = $1 AND pin_code = $2 AND is_used = $3
		         ORDER BY created_at DESC LIMIT 1`
	}

	var pin models.Pin
	err := d.db.QueryRow(query, lockID, pinCode, false).Scan(
		&pin.ID, &pin.LockID, &pin.UserID, &pin.PinCode, &pin.PinHash, &pin.Purpose,
		&pin.CreatedAt, &pin.ExpiresAt, &pin.IsUsed, &pin.TTLockKeyboardPwdID,
	)
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

// MarkPinUsed flips is_used on an unused PIN. Returns false if the PIN was
// already used, so redemption stays exactly-once.
func (d *Database) MarkPinUsed(id string) (bool, error) {
	query := `UPDATE smart_lock_pins SET is_used = ? WHERE id = ? AND is_used = ?`
	if d.dbType == "postgres" {
		query = `UPDATE smart_lock_pins SET is_used = $1 WHERE id = $2 AND is_used = $3`
	}

	result, err := d.db.Exec(query, true, id, false)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// Access-log operations

// FindOpenAccessLog returns the most recent access log matching (pin, lock)
// whose status is still awaiting vendor confirmation, or sql.ErrNoRows.
func (d *Database) FindOpenAccessLog(pin, lockID string) (*models.AccessLog, error) {
	query := `SELECT id, user_id, park_id, dog_ids_json, lock_id, pin, pin_type, status, issued_at, expires_at, used_at, duration_ms, created_at, updated_at
	          FROM access_logs
	          WHERE pin = ? AND lock_id = ? AND status IN ('issued', 'exit_requested')
	          ORDER BY issued_at DESC LIMIT 1`
	if d.dbType == "postgres" {
		query = `SELECT id, user_id, park_id, dog_ids_json, lock_id, pin, pin_type, status, issued_at, expires_at, used_at, duration_ms, created_at, updated_at
		         FROM access_logs
		         WHERE pin = $1 AND lock_id = $2 AND status IN ('issued', 'exit_requested')
		         ORDER BY issued_at DESC LIMIT 1`
	}

	var log models.AccessLog
	err := d.db.QueryRow(query, pin, lockID).Scan(
		&log.ID, &log.UserID, &log.ParkID, &log.DogIDsJSON, &log.LockID, &log.Pin, &log.PinType,
		&log.Status, &log.IssuedAt, &log.ExpiresAt, &log.UsedAt, &log.DurationMS, &log.CreatedAt, &log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetAccessLog retrieves an access log by ID
func (d *Database) GetAccessLog(id string) (*models.AccessLog, error) {
	query := `SELECT id, user_id, park_id, dog_ids_json, lock_id, pin, pin_type, status, issued_at, expires_at, used_at, duration_ms, created_at, updated_at
	          FROM access_logs WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, user_id, park_id, dog_ids_json, lock_id, pin, pin_type, status, issued_at, expires_at, used_at, duration_ms, created_at, updated_at
		         FROM access_logs WHERE id = $1`
	}

	var log models.AccessLog
	err := d.db.QueryRow(query, id).Scan(
		&log.ID, &log.UserID, &log.ParkID, &log.DogIDsJSON, &log.LockID, &log.Pin, &log.PinType,
		&log.Status, &log.IssuedAt, &log.ExpiresAt, &log.UsedAt, &log.DurationMS, &log.CreatedAt, &log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ReconcileAccessLog advances an access log to its confirmed status and stamps
// used_at. The used_at IS NULL guard makes redelivered webhooks a no-op; the
// return value reports whether this call performed the transition.
func (d *Database) ReconcileAccessLog(id, status string, usedAt, updatedAt time.Time) (bool, error) {
	query := `UPDATE access_logs SET status = ?, used_at = ?, updated_at = ? WHERE id = ? AND used_at IS NULL`
	if d.dbType == "postgres" {
		query = `UPDATE access_logs SET status = $1, used_at = $2, updated_at = $3 WHERE id = $4 AND used_at IS NULL`
	}

	result, err := d.db.Exec(query, status, usedAt, updatedAt, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// SetAccessLogDuration stores the computed stay duration on an access log
func (d *Database) SetAccessLogDuration(id string, durationMS int64, updatedAt time.Time) error {
	query := `UPDATE access_logs SET duration_ms = ?, updated_at = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE access_logs SET duration_ms = $1, updated_at = $2 WHERE id = $3`
	}

	_, err := d.db.Exec(query, durationMS, updatedAt, id)
	return err
}

// CountOccupancy derives the current number of users inside a park from
// unmatched entry/exit logs.
func (d *Database) CountOccupancy(parkID string) (int, error) {
	query := `SELECT
	            (SELECT COUNT(*) FROM access_logs WHERE park_id = ? AND status = 'entered') -
	            (SELECT COUNT(*) FROM access_logs WHERE park_id = ? AND status = 'exited')`
	if d.dbType == "postgres" {
		query = `SELECT
		           (SELECT COUNT(*) FROM access_logs WHERE park_id = $1 AND status = 'entered') -
		           (SELECT COUNT(*) FROM access_logs WHERE park_id = $2 AND status = 'exited')`
	}

	var occupancy int
	if err := d.db.QueryRow(query, parkID, parkID).Scan(&occupancy); err != nil {
		return 0, err
	}
	if occupancy < 0 {
		occupancy = 0
	}
	return occupancy, nil
}

// LatestEnteredAt returns the used_at of the user's most recent confirmed
// entry at the park, for stay-duration computation.
func (d *Database) LatestEnteredAt(userID, parkID string) (time.Time, error) {
	query := `SELECT used_at FROM access_logs
	          WHERE user_id = ? AND park_id = ? AND status = 'entered' AND used_at IS NOT NULL
	          ORDER BY used_at DESC LIMIT 1`
	if d.dbType == "postgres" {
		query = `SELECT used_at FROM access_logs
		         WHERE user_id = $1 AND park_id = $2 AND status = 'entered' AND used_at IS NOT NULL
		         ORDER BY used_at DESC LIMIT 1`
	}

	var enteredAt time.Time
	if err := d.db.QueryRow(query, userID, parkID).Scan(&enteredAt); err != nil {
		return time.Time{}, err
	}
	return enteredAt, nil
}

// IncrementDailyEntry bumps the park's visit counter for the given date
func (d *Database) IncrementDailyEntry(parkID, statDate string, updatedAt time.Time) error {
	query := `INSERT INTO park_daily_stats (park_id, stat_date, entry_count, updated_at)
	          VALUES (?, ?, 1, ?)
	          ON CONFLICT (park_id, stat_date) DO UPDATE SET entry_count = entry_count + 1, updated_at = excluded.updated_at`
	if d.dbType == "postgres" {
		query = `INSERT INTO park_daily_stats (park_id, stat_date, entry_count, updated_at)
		         VALUES ($1, $2, 1, $3)
		         ON CONFLICT (park_id, stat_date) DO UPDATE SET entry_count = park_daily_stats.entry_count + 1, updated_at = excluded.updated_at`
	}

	_, err := d.db.Exec(query, parkID, statDate, updatedAt)
	return err
}

// GetDailyEntryCount returns the park's visit counter for the given date
func (d *Database) GetDailyEntryCount(parkID, statDate string) (int, error) {
	query := `SELECT entry_count FROM park_daily_stats WHERE park_id = ? AND stat_date = ?`
	if d.dbType == "postgres" {
		query = `SELECT entry_count FROM park_daily_stats WHERE park_id = $1 AND stat_date = $2`
	}

	var count int
	err := d.db.QueryRow(query, parkID, statDate).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Dog and vaccine operations

// CreateDog registers a dog for an owner
func (d *Database) CreateDog(dog *models.Dog) error {
	query := `INSERT INTO dogs (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO dogs (id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)`
	}

	_, err := d.db.Exec(query, dog.ID, dog.OwnerID, dog.Name, dog.CreatedAt)
	return err
}

// CreateVaccineCertification records a vaccine certification for a dog
func (d *Database) CreateVaccineCertification(cert *models.VaccineCertification) error {
	query := `INSERT INTO vaccine_certifications (id, dog_id, status, rabies_expiry_date, combo_expiry_date, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO vaccine_certifications (id, dog_id, status, rabies_expiry_date, combo_expiry_date, created_at)
		         VALUES ($1, $2, $3, $4, $5, $6)`
	}

	_, err := d.db.Exec(query,
		cert.ID, cert.DogID, cert.Status, cert.RabiesExpiryDate, cert.ComboExpiryDate, cert.CreatedAt,
	)
	return err
}

// ListDogsWithCertifications returns the owner's dogs, each with its latest
// vaccine certification if one exists.
func (d *Database) ListDogsWithCertifications(ownerID string) ([]*models.DogWithCertification, error) {
	query := `SELECT d.id, d.owner_id, d.name, d.created_at,
	                 c.id, c.dog_id, c.status, c.rabies_expiry_date, c.combo_expiry_date, c.created_at
	          FROM dogs d
	          LEFT JOIN vaccine_certifications c ON c.dog_id = d.id
	          WHERE d.owner_id = ?
	          ORDER BY d.created_at, c.created_at DESC`
	if d.dbType == "postgres" {
		query = `SELECT d.id, d.owner_id, d.name, d.created_at,
		                c.id, c.dog_id, c.status, c.rabies_expiry_date, c.combo_expiry_date, c.created_at
		         FROM dogs d
		         LEFT JOIN vaccine_certifications c ON c.dog_id = d.id
		         WHERE d.owner_id = $1
		         ORDER BY d.created_at, c.created_at DESC`
	}

	rows, err := d.db.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// The join yields one row per certification; keep the newest per dog.
	byDog := make(map[string]*models.DogWithCertification)
	var order []string
	for rows.Next() {
		var dog models.Dog
		var certID, certDogID, certStatus sql.NullString
		var rabies, combo, certCreated sql.NullTime
		err := rows.Scan(
			&dog.ID, &dog.OwnerID, &dog.Name, &dog.CreatedAt,
			&certID, &certDogID, &certStatus, &rabies, &combo, &certCreated,
		)
		if err != nil {
			return nil, err
		}

		entry, seen := byDog[dog.ID]
		if !seen {
			entry = &models.DogWithCertification{Dog: dog}
			byDog[dog.ID] = entry
			order = append(order, dog.ID)
		}
		if certID.Valid && entry.Certification == nil {
			entry.Certification = &models.VaccineCertification{
				ID:               certID.String,
				DogID:            certDogID.String,
				Status:           certStatus.String,
				RabiesExpiryDate: rabies,
				ComboExpiryDate:  combo,
				CreatedAt:        certCreated.Time,
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*models.DogWithCertification, 0, len(order))
	for _, id := range order {
		result = append(result, byDog[id])
	}
	return result, nil
}

// Entitlement operations

// CreateEntitlement grants a user access to a park for a time window
func (d *Database) CreateEntitlement(ent *models.Entitlement) error {
	query := `INSERT INTO entitlements (id, user_id, park_id, kind, valid_from, valid_until, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO entitlements (id, user_id, park_id, kind, valid_from, valid_until, created_at)
		         VALUES ($1, $2, $3, $4, $5, $6, $7)`
	}

	_, err := d.db.Exec(query,
		ent.ID, ent.UserID, ent.ParkID, ent.Kind, ent.ValidFrom, ent.ValidUntil, ent.CreatedAt,
	)
	return err
}

// HasParkAccess reports whether the user holds any entitlement covering now
func (d *Database) HasParkAccess(userID, parkID string, now time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM entitlements
	          WHERE user_id = ? AND park_id = ? AND valid_from <= ? AND valid_until >= ?`
	if d.dbType == "postgres" {
		query = `SELECT COUNT(*) FROM entitlements
		         WHERE user_id = $1 AND park_id = $2 AND valid_from <= $3 AND valid_until >= $4`
	}

	var count int
	if err := d.db.QueryRow(query, userID, parkID, now, now).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
