package utils

import "strings"

// Password policy: length bounds plus basic abuse checks.
const (
	PasswordMinLen = 10
	PasswordMaxLen = 128

	minUniqueChars = 3
)

// Deny list of passwords nobody should be allowed to keep.
var commonPasswords = map[string]bool{
	"password":    true,
	"password1":   true,
	"password123": true,
	"123456":      true,
	"123456789":   true,
	"qwerty":      true,
	"letmein":     true,
	"iloveyou":    true,
	"admin":       true,
	"welcome":     true,
	"abc123":      true,
}

// ValidatePassword returns human-readable policy violations. An empty slice
// means the password passes.
func ValidatePassword(pw, email string) []string {
	var errs []string

	if strings.TrimSpace(pw) == "" && pw != "" {
		errs = append(errs, "Password cannot be only spaces.")
		return errs
	}

	if len(pw) < PasswordMinLen || len(pw) > PasswordMaxLen {
		errs = append(errs, "Password must be 10-128 characters.")
	}

	if tooFewUniqueChars(pw) {
		errs = append(errs, "Password is too repetitive; try mixing different characters.")
	}

	pwLower := strings.ToLower(strings.TrimSpace(pw))
	if commonPasswords[pwLower] {
		errs = append(errs, "Password is too common; choose something less guessable.")
	}

	if email != "" {
		local, _, _ := strings.Cut(email, "@")
		local = strings.ToLower(strings.TrimSpace(local))
		if local != "" && strings.Contains(pwLower, local) {
			errs = append(errs, "Password must not contain your email name.")
		}
	}

	return errs
}

// prevents "aaaaaaaaaa" or "1111111111"
func tooFewUniqueChars(pw string) bool {
	unique := make(map[rune]bool)
	for _, r := range strings.ToLower(pw) {
		unique[r] = true
	}
	return len(unique) < minUniqueChars
}
