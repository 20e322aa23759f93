// Package pincode generates and hashes the numeric codes programmed onto
// smart locks. Codes are uniform fixed-width digit strings; the hash is kept
// alongside the plaintext for audit lookups.
package pincode

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Generate returns a random numeric code of the given length. Leading zeros
// are permitted; the code is sampled uniformly from the full 10^length space.
func Generate(length int) (string, error) {
	if length < 4 || length > 9 {
		return "", fmt.Errorf("invalid PIN length: %d", length)
	}

	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate PIN: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

// Hash returns the SHA-256 hex digest of a code
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
