package ttlock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.TTLockConfig {
	return &config.TTLockConfig{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "lock-admin",
		Password:     "lock-password",
		Timeout:      5 * time.Second,
	}
}

func TestConfigured(t *testing.T) {
	t.Run("Full credentials", func(t *testing.T) {
		client := NewClient(testConfig("http://example.com"))
		assert.True(t, client.Configured())
	})

	t.Run("Missing credentials", func(t *testing.T) {
		cfg := testConfig("http://example.com")
		cfg.ClientSecret = ""
		client := NewClient(cfg)
		assert.False(t, client.Configured())
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("Successful password grant", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/oauth2/token", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "lock-admin", r.PostForm.Get("username"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"token-123","expires_in":7776000}`))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		require.NoError(t, client.Authenticate(context.Background()))
	})

	t.Run("Vendor error code fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errcode":10003,"errmsg":"invalid token"}`))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		err := client.Authenticate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "10003")
	})

	t.Run("Empty access token fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errcode":0}`))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		assert.Error(t, client.Authenticate(context.Background()))
	})

	t.Run("Unreachable server fails", func(t *testing.T) {
		client := NewClient(testConfig("http://127.0.0.1:1"))
		assert.Error(t, client.Authenticate(context.Background()))
	})
}

func TestAddKeyboardPassword(t *testing.T) {
	t.Run("Programs one-time password", func(t *testing.T) {
		var authCalls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/oauth2/token":
				authCalls++
				w.Write([]byte(`{"access_token":"token-123","expires_in":7776000}`))
			case "/keyboardPwd/add":
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "token-123", r.PostForm.Get("accessToken"))
				assert.Equal(t, "4242", r.PostForm.Get("lockId"))
				assert.Equal(t, "123456", r.PostForm.Get("password"))
				assert.Equal(t, "1", r.PostForm.Get("type"))
				assert.NotEmpty(t, r.PostForm.Get("startDate"))
				assert.NotEmpty(t, r.PostForm.Get("endDate"))
				w.Write([]byte(`{"errcode":0,"keyboardPwdId":98765}`))
			default:
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		now := time.Now()

		pwdID, err := client.AddKeyboardPassword(context.Background(), 4242, "123456", now, now.Add(5*time.Minute), "parkgate")
		require.NoError(t, err)
		assert.Equal(t, int64(98765), pwdID)

		// Token is cached across calls
		_, err = client.AddKeyboardPassword(context.Background(), 4242, "654321", now, now.Add(5*time.Minute), "parkgate")
		require.NoError(t, err)
		assert.Equal(t, 1, authCalls)
	})

	t.Run("Vendor rejection fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth2/token" {
				w.Write([]byte(`{"access_token":"token-123","expires_in":7776000}`))
				return
			}
			w.Write([]byte(`{"errcode":-3,"errmsg":"invalid parameter"}`))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL))
		_, err := client.AddKeyboardPassword(context.Background(), 4242, "123456", time.Now(), time.Now().Add(time.Minute), "parkgate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid parameter")
	})
}

func TestDeleteKeyboardPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			w.Write([]byte(`{"access_token":"token-123","expires_in":7776000}`))
			return
		}
		require.Equal(t, "/keyboardPwd/delete", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "98765", r.PostForm.Get("keyboardPwdId"))
		w.Write([]byte(`{"errcode":0}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	assert.NoError(t, client.DeleteKeyboardPassword(context.Background(), 4242, 98765))
}

func TestListLockRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			w.Write([]byte(`{"access_token":"token-123","expires_in":7776000}`))
			return
		}
		require.Equal(t, "/lockRecord/list", r.URL.Path)
		assert.Equal(t, "4242", r.URL.Query().Get("lockId"))
		w.Write([]byte(`{"errcode":0,"list":[{"recordId":1,"lockId":4242,"recordType":2,"success":1}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	records, err := client.ListLockRecords(context.Background(), 4242, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, RecordTypeKeyboardUnlock, records[0].RecordType)
}
