package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	t.Run("CORS disabled passes requests through", func(t *testing.T) {
		cfg := &config.Config{
			Security: config.SecurityConfig{
				CORSEnabled: false,
			},
		}

		router := setupTestRouter()
		router.Use(CORSMiddleware(cfg))
		router.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://example.com")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("CORS enabled sets headers for allowed origin", func(t *testing.T) {
		cfg := &config.Config{
			Security: config.SecurityConfig{
				CORSEnabled: true,
				CORSOrigins: []string{"http://app.example.com"},
			},
		}

		router := setupTestRouter()
		router.Use(CORSMiddleware(cfg))
		router.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://app.example.com")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight request is handled", func(t *testing.T) {
		cfg := &config.Config{
			Security: config.SecurityConfig{
				CORSEnabled: true,
				CORSOrigins: []string{"http://app.example.com"},
			},
		}

		router := setupTestRouter()
		router.Use(CORSMiddleware(cfg))
		router.POST("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req, _ := http.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}
