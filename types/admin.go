package types

import "time"

// Admin represents an administrator account.
//
// The ID is the external-facing identifier the administrator logs in with,
// not a database surrogate key.
type Admin struct {
	// ID is the unique login identifier of the administrator.
	ID string `json:"id" db:"id"`

	// PasswordHash stores the bcrypt hash of the administrator's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
