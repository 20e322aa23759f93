package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/dogparkjp/parkgate/internal/config"
	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the webhook HMAC signature
const SignatureHeader = "X-Webhook-Signature"

// WebhookSignatureMiddleware verifies the HMAC-SHA256 signature of the raw
// request body when a webhook secret is configured. With no secret configured
// the webhook endpoint is open, matching vendor setups that cannot sign.
func WebhookSignatureMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Webhook.Secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read request body"})
			c.Abort()
			return
		}
		// Handlers still need to bind the body.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(cfg.Webhook.Secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		signature := c.GetHeader(SignatureHeader)
		if signature == "" || !hmac.Equal([]byte(signature), []byte(expected)) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid webhook signature"})
			c.Abort()
			return
		}

		c.Next()
	}
}
