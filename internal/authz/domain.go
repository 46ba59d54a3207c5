// Package authz resolves the effective capability set a user holds within a
// practice. Resolution is a pure recomputation over four stores: the role
// catalog, practice role activations, capability overrides, and user role
// assignments. Nothing derived is persisted.
package authz

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/capability"
)

// MemberAssignment is one user role assignment joined to its activation and
// catalog rows. The join fields are explicitly optional: RoleFound is false
// when the activation row is gone, CatalogID is zero when the catalog entry
// is gone. Broken links contribute nothing and are never an error.
type MemberAssignment struct {
	AssignmentID   int64     `json:"assignment_id"`
	UserID         int64     `json:"user_id"`
	PracticeID     int64     `json:"practice_id"`
	PracticeRoleID int64     `json:"practice_role_id"`
	AssignedAt     time.Time `json:"assigned_at"`

	RoleFound   bool   `json:"-"`
	RoleActive  bool   `json:"role_active"`
	CatalogID   int64  `json:"catalog_id,omitempty"`
	RoleKey     string `json:"role_key,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// live reports whether the assignment survives step two of resolution: the
// activation exists and is switched on.
func (m MemberAssignment) live() bool {
	return m.RoleFound && m.RoleActive
}

// Resolution is the effective permission state for one (user, practice)
// pair. Capabilities is a set by construction: no duplicates, no meaningful
// order. Assignments lists only the surviving grants; a held role with no
// capabilities still appears here.
type Resolution struct {
	UserID       int64
	PracticeID   int64
	Capabilities capability.Set
	Assignments  []MemberAssignment
}

// Store is the read surface the resolver needs. Implementations must support
// batch lookups keyed by many IDs in a single round trip.
type Store interface {
	// ListMemberAssignments returns the user's assignments in the practice
	// with activation and catalog join fields populated where the links
	// still hold.
	ListMemberAssignments(ctx context.Context, userID, practiceID int64) ([]MemberAssignment, error)

	// DefaultCapabilities returns catalog default capability sets keyed by
	// catalog entry ID.
	DefaultCapabilities(ctx context.Context, catalogIDs []int64) (map[int64][]capability.Capability, error)

	// Overrides returns override capabilities keyed by practice role ID.
	Overrides(ctx context.Context, practiceRoleIDs []int64) (map[int64][]capability.Capability, error)
}
