package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("user-1", "hanako", "user", "test-secret", "parkgate", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateToken(t *testing.T) {
	const secret = "test-secret"

	t.Run("Valid token round-trips claims", func(t *testing.T) {
		token, err := GenerateToken("user-1", "hanako", "admin", secret, "parkgate", time.Hour)
		require.NoError(t, err)

		claims, err := ValidateToken(token, secret)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "hanako", claims.Username)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "parkgate", claims.Issuer)
	})

	t.Run("Wrong secret fails", func(t *testing.T) {
		token, err := GenerateToken("user-1", "hanako", "user", secret, "parkgate", time.Hour)
		require.NoError(t, err)

		_, err = ValidateToken(token, "wrong-secret")
		assert.Error(t, err)
	})

	t.Run("Expired token fails", func(t *testing.T) {
		token, err := GenerateToken("user-1", "hanako", "user", secret, "parkgate", -time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(token, secret)
		assert.Error(t, err)
	})

	t.Run("Unexpected signing method fails", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ValidateToken(signed, secret)
		assert.Error(t, err)
	})

	t.Run("Garbage token fails", func(t *testing.T) {
		_, err := ValidateToken("not.a.token", secret)
		assert.Error(t, err)
	})
}
