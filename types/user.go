package types

import "time"

// User represents an end-user account provisioned from the identity provider.
type User struct {
	// ID is the system-assigned unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. It is unique and acts as the join
	// key between the identity provider's profile and the local account.
	Email string `json:"email" db:"email"`

	// Name is the user's display name as reported by the provider.
	Name string `json:"name" db:"name"`

	// ProfileMeta holds opaque provider profile details, e.g. the avatar URL
	// and the provider subject id.
	ProfileMeta map[string]string `json:"meta" db:"profile_meta"`

	// CreatedAt is the timestamp when the account was first provisioned.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
