// Package assignments links users to practice role activations. The link is
// many-to-many within a practice: a user may hold several roles, a role may
// be held by several users.
package assignments

import "time"

// Assignment grants one user one practice role. Duplicate grants for the
// same (user, practice role) pair are tolerated as no-ops.
type Assignment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	PracticeID     int64     `json:"practice_id"`
	PracticeRoleID int64     `json:"practice_role_id"`
	CreatedAt      time.Time `json:"created_at"`

	// Joined display fields. RoleKey and DisplayName are empty when the
	// chain to the catalog entry is broken; IsActive is false when the
	// activation row itself is gone.
	RoleKey     string `json:"role_key,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsActive    bool   `json:"is_active"`
}
