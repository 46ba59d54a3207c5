// Package practiceroles manages a practice's activations of catalog roles and
// the capability overrides attached to them.
package practiceroles

import (
	"time"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/catalog"
)

// PracticeRole is one practice's on/off switch for a catalog role. At most
// one row exists per (practice, catalog entry) pair; deactivation flips
// IsActive rather than deleting, so override and assignment history survives.
type PracticeRole struct {
	ID         int64     `json:"id"`
	PracticeID int64     `json:"practice_id"`
	CatalogID  int64     `json:"catalog_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Catalog is the joined definition. Nil when the referenced entry no
	// longer exists; such activations contribute nothing when resolved.
	Catalog *catalog.Entry `json:"catalog,omitempty"`

	// Overrides are the extra capabilities granted beyond the catalog
	// defaults. Populated on list reads.
	Overrides []capability.Capability `json:"overrides,omitempty"`
}

// Override grants one capability to one practice role beyond its catalog
// defaults. Identity is the pair itself.
type Override struct {
	PracticeRoleID int64                 `json:"practice_role_id"`
	Capability     capability.Capability `json:"capability"`
}
