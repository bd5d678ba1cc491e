package utils

import "strings"

// NormalizeEmail lowercases and trims a recipient address. All email
// comparisons and token digests go through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
