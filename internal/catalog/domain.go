// Package catalog holds the tenant-independent role definitions. Entries are
// curated centrally by platform operators and read by every practice.
package catalog

import (
	"time"

	"github.com/clinicore/clinicore/internal/capability"
)

// Category groups catalog entries for stable UI presentation.
type Category string

const (
	CategoryClinical       Category = "clinical"
	CategoryAdministrative Category = "administrative"
	CategorySupport        Category = "support"
)

// Categories lists the valid groupings in display order.
func Categories() []Category {
	return []Category{CategoryClinical, CategoryAdministrative, CategorySupport}
}

// Valid reports whether the category is one of the known groupings.
func (c Category) Valid() bool {
	switch c {
	case CategoryClinical, CategoryAdministrative, CategorySupport:
		return true
	}
	return false
}

// Entry is a tenant-independent role definition. RoleKey is globally unique
// and human-stable; DefaultCapabilities may be empty.
type Entry struct {
	ID                  int64                   `json:"id"`
	RoleKey             string                  `json:"role_key"`
	DisplayName         string                  `json:"display_name"`
	Category            Category                `json:"category"`
	DefaultCapabilities []capability.Capability `json:"default_capabilities"`
	Description         string                  `json:"description"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// DefaultSet returns the entry's default capabilities as a set.
func (e Entry) DefaultSet() capability.Set {
	return capability.NewSet(e.DefaultCapabilities...)
}
