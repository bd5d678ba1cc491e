package entity

type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

type User struct {
	Base
	Email        string       `db:"email"`
	FullName     *string      `db:"full_name"`
	Provider     AuthProvider `db:"provider"`
	ProviderID   *string      `db:"provider_id"`
	PasswordHash *string      `db:"password_hash"` // nil for OAuth-only accounts
	// EmailVerified is always present; verification state is never inferred
	// from a missing attribute.
	EmailVerified bool `db:"email_verified"`
}

// HasPassword reports whether the account can do password login at all.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
