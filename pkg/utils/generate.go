package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== SECRETS ====================

// Raw byte length of opaque link tokens (256 bits before encoding).
const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a URL-safe random string for link tokens.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateOTP returns a zero-padded numeric code drawn uniformly from the
// digit space using a CSPRNG.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("random otp: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
