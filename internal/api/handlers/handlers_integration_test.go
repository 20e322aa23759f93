package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dogparkjp/parkgate/internal/api"
	"github.com/dogparkjp/parkgate/internal/auth"
	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/dogparkjp/parkgate/internal/database"
	"github.com/dogparkjp/parkgate/internal/database/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestEnvironment holds all components needed for integration tests
type TestEnvironment struct {
	DB     *database.Database
	Config *config.Config
	Router *gin.Engine
}

// setupTestEnvironment creates a complete test environment with real services.
// The vendor client is unconfigured, so issuance runs in demo mode.
func setupTestEnvironment(t *testing.T) *TestEnvironment {
	gin.SetMode(gin.TestMode)

	dbPath := t.TempDir() + "/test.db"

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: dbPath,
			},
		},
		JWT: config.JWTConfig{
			Secret:     "test-secret-key-for-testing-only-12345",
			Expiration: 24 * time.Hour,
			Issuer:     "parkgate-test",
		},
		Pin: config.PinConfig{
			CodeLength:           6,
			DefaultExpiryMinutes: 5,
			DisplayName:          "Parkgate",
		},
		Logging: config.LoggingConfig{
			Level: "info",
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err, "Failed to create test database")

	err = db.Migrate()
	require.NoError(t, err, "Failed to run migrations")

	t.Cleanup(func() { db.Close() })

	router := api.NewRouter(cfg, db, zap.NewNop())

	return &TestEnvironment{
		DB:     db,
		Config: cfg,
		Router: router,
	}
}

func (env *TestEnvironment) token(t *testing.T, userID, role string) string {
	token, err := auth.GenerateToken(userID, "testuser", role, env.Config.JWT.Secret, env.Config.JWT.Issuer, time.Hour)
	require.NoError(t, err)
	return token
}

func (env *TestEnvironment) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonBody)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

func (env *TestEnvironment) seedLock(t *testing.T, lockID, parkID string) {
	require.NoError(t, env.DB.CreateLock(&models.SmartLock{
		ID:         uuid.New().String(),
		LockID:     lockID,
		ParkID:     parkID,
		ParkName:   "Yoyogi Dog Run",
		PinEnabled: true,
		CreatedAt:  time.Now().UTC(),
	}))
}

func (env *TestEnvironment) seedEligibleUser(t *testing.T, userID, parkID string) {
	now := time.Now().UTC()
	require.NoError(t, env.DB.CreateEntitlement(&models.Entitlement{
		ID:         uuid.New().String(),
		UserID:     userID,
		ParkID:     parkID,
		Kind:       "subscription",
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(24 * time.Hour),
		CreatedAt:  now,
	}))

	dog := &models.Dog{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Name:      "Momo",
		CreatedAt: now,
	}
	require.NoError(t, env.DB.CreateDog(dog))
	require.NoError(t, env.DB.CreateVaccineCertification(&models.VaccineCertification{
		ID:        uuid.New().String(),
		DogID:     dog.ID,
		Status:    models.CertApproved,
		RabiesExpiryDate: sql.NullTime{
			Time:  now.Add(365 * 24 * time.Hour),
			Valid: true,
		},
		CreatedAt: now,
	}))
}

func TestHealthz(t *testing.T) {
	env := setupTestEnvironment(t)

	w := env.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestIssuePinEndpoint(t *testing.T) {
	t.Run("Issue PIN end to end", func(t *testing.T) {
		env := setupTestEnvironment(t)
		env.seedLock(t, "lock-001", "park-001")
		env.seedEligibleUser(t, "user-1", "park-001")

		w := env.request(t, http.MethodPost, "/api/v1/pins", env.token(t, "user-1", "user"), gin.H{
			"lock_id": "lock-001",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Len(t, resp["pin_code"], 6)
		assert.NotEmpty(t, resp["expires_at"])
		assert.Equal(t, true, resp["demo_mode"])
		assert.Equal(t, "Yoyogi Dog Run", resp["park_name"])
		// Demo mode means no vendor-side password was registered
		assert.NotContains(t, resp, "ttlock_pin_id")
	})

	t.Run("Without token returns 401", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodPost, "/api/v1/pins", "", gin.H{"lock_id": "lock-001"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Unknown lock returns 404", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodPost, "/api/v1/pins", env.token(t, "user-1", "user"), gin.H{
			"lock_id": "no-such-lock",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("No entitlement returns 403", func(t *testing.T) {
		env := setupTestEnvironment(t)
		env.seedLock(t, "lock-001", "park-001")

		w := env.request(t, http.MethodPost, "/api/v1/pins", env.token(t, "user-1", "user"), gin.H{
			"lock_id": "lock-001",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Duplicate active PIN returns 409", func(t *testing.T) {
		env := setupTestEnvironment(t)
		env.seedLock(t, "lock-001", "park-001")
		env.seedEligibleUser(t, "user-1", "park-001")

		token := env.token(t, "user-1", "user")
		w := env.request(t, http.MethodPost, "/api/v1/pins", token, gin.H{"lock_id": "lock-001"})
		require.Equal(t, http.StatusOK, w.Code)

		w = env.request(t, http.MethodPost, "/api/v1/pins", token, gin.H{"lock_id": "lock-001"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Missing lock_id returns 400", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodPost, "/api/v1/pins", env.token(t, "user-1", "user"), gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVerifyPinEndpoint(t *testing.T) {
	t.Run("Verify issued PIN", func(t *testing.T) {
		env := setupTestEnvironment(t)
		env.seedLock(t, "lock-001", "park-001")
		env.seedEligibleUser(t, "user-1", "park-001")

		w := env.request(t, http.MethodPost, "/api/v1/pins", env.token(t, "user-1", "user"), gin.H{
			"lock_id": "lock-001",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var issued map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
		code := issued["pin_code"].(string)

		// Verification needs no token; the keypad is the caller
		w = env.request(t, http.MethodPost, "/api/v1/pins/verify", "", gin.H{
			"lock_id": "lock-001",
			"pin":     code,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "entry recorded", resp["message"])
		assert.Equal(t, "park-001", resp["park_id"])

		// Replay is rejected
		w = env.request(t, http.MethodPost, "/api/v1/pins/verify", "", gin.H{
			"lock_id": "lock-001",
			"pin":     code,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Wrong code returns 400", func(t *testing.T) {
		env := setupTestEnvironment(t)
		env.seedLock(t, "lock-001", "park-001")

		w := env.request(t, http.MethodPost, "/api/v1/pins/verify", "", gin.H{
			"lock_id": "lock-001",
			"pin":     "000000",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebhookEndpoint(t *testing.T) {
	t.Run("Unlock event reconciles the access log", func(t *testing.T) {
		env := setupTestEnvironment(t)
		env.seedLock(t, "lock-001", "park-001")
		env.seedEligibleUser(t, "user-1", "park-001")

		w := env.request(t, http.MethodPost, "/api/v1/pins", env.token(t, "user-1", "user"), gin.H{
			"lock_id": "lock-001",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var issued map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
		code := issued["pin_code"].(string)

		w = env.request(t, http.MethodPost, "/api/v1/webhooks/ttlock", "", gin.H{
			"lockId":      "lock-001",
			"keyboardPwd": code,
			"recordType":  2,
			"date":        time.Now().UnixMilli(),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "access log updated to entered", resp["message"])

		// Redelivery is acknowledged without reprocessing
		w = env.request(t, http.MethodPost, "/api/v1/webhooks/ttlock", "", gin.H{
			"lockId":      "lock-001",
			"keyboardPwd": code,
			"recordType":  2,
			"date":        time.Now().UnixMilli(),
		})
		assert.Equal(t, http.StatusOK, w.Code)

		occupancy, err := env.DB.CountOccupancy("park-001")
		require.NoError(t, err)
		assert.Equal(t, 1, occupancy)
	})

	t.Run("Missing fields return 400", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodPost, "/api/v1/webhooks/ttlock", "", gin.H{
			"lockId": "lock-001",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "false")
	})

	t.Run("Non-keyboard event is acknowledged", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodPost, "/api/v1/webhooks/ttlock", "", gin.H{
			"lockId":      "lock-001",
			"keyboardPwd": "123456",
			"recordType":  7,
			"date":        time.Now().UnixMilli(),
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "logged but not processed")
	})
}

func TestLockAdminEndpoints(t *testing.T) {
	t.Run("Admin can create, list, and toggle locks", func(t *testing.T) {
		env := setupTestEnvironment(t)
		token := env.token(t, "admin-1", "admin")

		w := env.request(t, http.MethodPost, "/api/v1/locks", token, gin.H{
			"lock_id":        "lock-001",
			"park_id":        "park-001",
			"park_name":      "Yoyogi Dog Run",
			"ttlock_lock_id": 4242,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.request(t, http.MethodGet, "/api/v1/locks", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "lock-001")

		w = env.request(t, http.MethodPut, "/api/v1/locks/lock-001/enabled", token, gin.H{
			"pin_enabled": false,
		})
		require.Equal(t, http.StatusOK, w.Code)

		lock, err := env.DB.GetLockByLockID("lock-001")
		require.NoError(t, err)
		assert.False(t, lock.PinEnabled)
	})

	t.Run("Non-admin gets 403", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodGet, "/api/v1/locks", env.token(t, "user-1", "user"), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Toggle unknown lock returns 404", func(t *testing.T) {
		env := setupTestEnvironment(t)

		w := env.request(t, http.MethodPut, "/api/v1/locks/no-such-lock/enabled", env.token(t, "admin-1", "admin"), gin.H{
			"pin_enabled": true,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOccupancyEndpoint(t *testing.T) {
	env := setupTestEnvironment(t)

	w := env.request(t, http.MethodGet, "/api/v1/parks/park-001/occupancy", env.token(t, "user-1", "user"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "park-001", resp["park_id"])
	assert.Equal(t, float64(0), resp["occupancy"])
}
