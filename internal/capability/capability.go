// Package capability defines the closed vocabulary of permission tokens used
// across Clinicore. Capabilities are never created at runtime; stores and the
// resolution engine only ever reference members of this set.
package capability

import "sort"

// Capability is an atomic permission token.
type Capability string

// Platform capabilities, grouped by the screens they gate.
const (
	ViewDashboards Capability = "view_dashboards"

	ManageTasks   Capability = "manage_tasks"
	CompleteTasks Capability = "complete_tasks"

	ManageAudits  Capability = "manage_audits"
	ConductAudits Capability = "conduct_audits"

	ViewIncidents   Capability = "view_incidents"
	ManageIncidents Capability = "manage_incidents"

	ManageHRRecords Capability = "manage_hr_records"

	ViewReports   Capability = "view_reports"
	ExportReports Capability = "export_reports"

	ManageUsers         Capability = "manage_users"
	AssignRoles         Capability = "assign_roles"
	ManagePracticeRoles Capability = "manage_practice_roles"

	ManageSettings  Capability = "manage_settings"
	ViewActivityLog Capability = "view_activity_log"
)

var all = []Capability{
	ViewDashboards,
	ManageTasks,
	CompleteTasks,
	ManageAudits,
	ConductAudits,
	ViewIncidents,
	ManageIncidents,
	ManageHRRecords,
	ViewReports,
	ExportReports,
	ManageUsers,
	AssignRoles,
	ManagePracticeRoles,
	ManageSettings,
	ViewActivityLog,
}

var known = func() map[Capability]struct{} {
	m := make(map[Capability]struct{}, len(all))
	for _, c := range all {
		m[c] = struct{}{}
	}
	return m
}()

// All returns every capability in the vocabulary.
func All() []Capability {
	out := make([]Capability, len(all))
	copy(out, all)
	return out
}

// IsValid reports whether the token belongs to the vocabulary.
func IsValid(c Capability) bool {
	_, ok := known[c]
	return ok
}

// Set is an unordered, de-duplicated collection of capabilities. The zero
// value is usable and represents the empty set.
type Set map[Capability]struct{}

// NewSet builds a set from the given capabilities.
func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts a capability. Adding an existing member is a no-op.
func (s Set) Add(c Capability) {
	s[c] = struct{}{}
}

// Union merges other into s.
func (s Set) Union(other Set) {
	for c := range other {
		s[c] = struct{}{}
	}
}

// Has reports membership of a single capability.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// HasAny reports whether at least one of the required capabilities is
// present. An empty requirement is satisfied vacuously.
func (s Set) HasAny(required ...Capability) bool {
	if len(required) == 0 {
		return true
	}
	for _, c := range required {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether every required capability is present.
func (s Set) HasAll(required ...Capability) bool {
	for _, c := range required {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Equal reports set equality.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if !other.Has(c) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order for stable JSON output.
func (s Set) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted members as plain strings.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, c := range sorted {
		out[i] = string(c)
	}
	return out
}
