package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAccess(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Entry with full eligibility succeeds", func(t *testing.T) {
		db, _ := setupTestDB(t)
		seedLock(t, db, "lock-001", "park-001", 0)
		seedEntitlement(t, db, "user-1", "park-001")
		seedApprovedDog(t, db, "user-1")

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		lock, err := svc.CheckAccess("user-1", "lock-001", models.PurposeEntry, now)
		require.NoError(t, err)
		assert.Equal(t, "park-001", lock.ParkID)
	})

	t.Run("Unknown lock", func(t *testing.T) {
		db, _ := setupTestDB(t)
		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))

		_, err := svc.CheckAccess("user-1", "no-such-lock", models.PurposeEntry, now)
		assert.ErrorIs(t, err, ErrLockNotFound)
	})

	t.Run("Disabled lock", func(t *testing.T) {
		db, _ := setupTestDB(t)
		seedLock(t, db, "lock-001", "park-001", 0)
		require.NoError(t, db.SetLockPinEnabled("lock-001", false))

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		_, err := svc.CheckAccess("user-1", "lock-001", models.PurposeEntry, now)
		assert.ErrorIs(t, err, ErrPinAccessDisabled)
	})

	t.Run("No park access", func(t *testing.T) {
		db, _ := setupTestDB(t)
		seedLock(t, db, "lock-001", "park-001", 0)

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		_, err := svc.CheckAccess("user-1", "lock-001", models.PurposeEntry, now)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("Entry without vaccine approval", func(t *testing.T) {
		db, _ := setupTestDB(t)
		seedLock(t, db, "lock-001", "park-001", 0)
		seedEntitlement(t, db, "user-1", "park-001")

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		_, err := svc.CheckAccess("user-1", "lock-001", models.PurposeEntry, now)
		assert.ErrorIs(t, err, ErrVaccineNotApproved)
	})

	t.Run("Exit skips vaccine gate", func(t *testing.T) {
		db, _ := setupTestDB(t)
		seedLock(t, db, "lock-001", "park-001", 0)
		seedEntitlement(t, db, "user-1", "park-001")

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		_, err := svc.CheckAccess("user-1", "lock-001", models.PurposeExit, now)
		assert.NoError(t, err)
	})
}

func TestHasApprovedVaccination(t *testing.T) {
	now := time.Now().UTC()

	addDogWithCert := func(t *testing.T, db *database.Database, ownerID, status string, rabies, combo sql.NullTime) {
		dog := &models.Dog{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Name:      "Taro",
			CreatedAt: now,
		}
		require.NoError(t, db.CreateDog(dog))
		require.NoError(t, db.CreateVaccineCertification(&models.VaccineCertification{
			ID:               uuid.New().String(),
			DogID:            dog.ID,
			Status:           status,
			RabiesExpiryDate: rabies,
			ComboExpiryDate:  combo,
			CreatedAt:        now,
		}))
	}

	future := sql.NullTime{Time: now.Add(30 * 24 * time.Hour), Valid: true}
	past := sql.NullTime{Time: now.Add(-24 * time.Hour), Valid: true}

	t.Run("No dogs", func(t *testing.T) {
		db, _ := setupTestDB(t)
		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))

		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Approved with future expiries", func(t *testing.T) {
		db, _ := setupTestDB(t)
		addDogWithCert(t, db, "user-1", models.CertApproved, future, future)

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Approved with missing expiry dates counts", func(t *testing.T) {
		db, _ := setupTestDB(t)
		addDogWithCert(t, db, "user-1", models.CertApproved, sql.NullTime{}, sql.NullTime{})

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Pending certification does not count", func(t *testing.T) {
		db, _ := setupTestDB(t)
		addDogWithCert(t, db, "user-1", models.CertPending, future, future)

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expired rabies vaccine does not count", func(t *testing.T) {
		db, _ := setupTestDB(t)
		addDogWithCert(t, db, "user-1", models.CertApproved, past, future)

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expired combo vaccine does not count", func(t *testing.T) {
		db, _ := setupTestDB(t)
		addDogWithCert(t, db, "user-1", models.CertApproved, future, past)

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("One eligible dog among several suffices", func(t *testing.T) {
		db, _ := setupTestDB(t)
		addDogWithCert(t, db, "user-1", models.CertRejected, future, future)
		addDogWithCert(t, db, "user-1", models.CertApproved, future, future)

		svc := NewEligibilityService(db, NewDatabaseAccessChecker(db))
		ok, err := svc.HasApprovedVaccination("user-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
