package entity

import (
	"strings"
	"time"
)

// Purpose names the flow a secret was minted for. Link-channel purposes carry
// opaque tokens; purposes with the _otp suffix carry numeric codes.
type Purpose string

const (
	PurposeLogin Purpose = "login"
	PurposeReset Purpose = "reset"

	PurposeLoginOTP  Purpose = "login_otp"
	PurposeVerifyOTP Purpose = "verify_otp"
	PurposeResetOTP  Purpose = "reset_otp"
	PurposeDeleteOTP Purpose = "delete_otp"
)

var knownPurposes = map[Purpose]struct{}{
	PurposeLogin:     {},
	PurposeReset:     {},
	PurposeLoginOTP:  {},
	PurposeVerifyOTP: {},
	PurposeResetOTP:  {},
	PurposeDeleteOTP: {},
}

func (p Purpose) Known() bool {
	_, ok := knownPurposes[p]
	return ok
}

// IsOTP reports whether the purpose travels on the numeric-code channel.
func (p Purpose) IsOTP() bool {
	return strings.HasSuffix(string(p), "_otp")
}

// AuthToken is one issued secret: only the sha256 hex digest is stored, never
// the raw token or code.
type AuthToken struct {
	BaseSimple
	Email     string    `db:"email"`
	Purpose   Purpose   `db:"purpose"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	Consumed  bool      `db:"consumed"`
	Attempts  int       `db:"attempts"`
}

// Valid reports whether the record is still usable at the given instant.
// Attempt lockout is a verification concern, not a validity one.
func (t *AuthToken) Valid(now time.Time) bool {
	return !t.Consumed && t.ExpiresAt.After(now)
}
