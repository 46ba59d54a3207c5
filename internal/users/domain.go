// Package users exposes read-only member profiles. Identity and
// authentication live in a separate system; this package only mirrors the
// profile rows it syncs and joins them to role assignments for member
// listings.
package users

import "time"

// User is a synced profile row.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a user seen through the lens of one practice: the profile plus
// the role keys currently granted there. ProfileMissing marks members whose
// assignments exist but whose profile row has not synced yet.
type Member struct {
	UserID         int64    `json:"user_id"`
	Email          string   `json:"email,omitempty"`
	Name           string   `json:"name,omitempty"`
	ProfileMissing bool     `json:"profile_missing,omitempty"`
	RoleKeys       []string `json:"role_keys"`
}
