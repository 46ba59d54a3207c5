package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/capability"
)

type stubStore struct {
	assignments []MemberAssignment
	defaults    map[int64][]capability.Capability
	overrides   map[int64][]capability.Capability

	assignmentsErr error
	defaultsErr    error
	overridesErr   error

	defaultCalls  [][]int64
	overrideCalls [][]int64
}

func (s *stubStore) ListMemberAssignments(ctx context.Context, userID, practiceID int64) ([]MemberAssignment, error) {
	if s.assignmentsErr != nil {
		return nil, s.assignmentsErr
	}
	return s.assignments, nil
}

func (s *stubStore) DefaultCapabilities(ctx context.Context, catalogIDs []int64) (map[int64][]capability.Capability, error) {
	s.defaultCalls = append(s.defaultCalls, catalogIDs)
	if s.defaultsErr != nil {
		return nil, s.defaultsErr
	}
	return s.defaults, nil
}

func (s *stubStore) Overrides(ctx context.Context, practiceRoleIDs []int64) (map[int64][]capability.Capability, error) {
	s.overrideCalls = append(s.overrideCalls, practiceRoleIDs)
	if s.overridesErr != nil {
		return nil, s.overridesErr
	}
	return s.overrides, nil
}

func liveAssignment(assignmentID, roleID, catalogID int64) MemberAssignment {
	return MemberAssignment{
		AssignmentID:   assignmentID,
		UserID:         7,
		PracticeID:     3,
		PracticeRoleID: roleID,
		AssignedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		RoleFound:      true,
		RoleActive:     true,
		CatalogID:      catalogID,
		RoleKey:        "gp",
		DisplayName:    "General Practitioner",
	}
}

func TestResolveUnionsDefaultsAndOverrides(t *testing.T) {
	store := &stubStore{
		assignments: []MemberAssignment{liveAssignment(1, 10, 100)},
		defaults: map[int64][]capability.Capability{
			100: {capability.ViewDashboards, capability.ConductAudits},
		},
		overrides: map[int64][]capability.Capability{
			10: {capability.ManageTasks},
		},
	}
	res, err := NewResolver(store).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := capability.NewSet(capability.ViewDashboards, capability.ConductAudits, capability.ManageTasks)
	if !res.Capabilities.Equal(want) {
		t.Fatalf("capabilities = %v, want %v", res.Capabilities.Sorted(), want.Sorted())
	}
	if len(res.Assignments) != 1 {
		t.Fatalf("assignments = %d, want 1", len(res.Assignments))
	}
}

func TestResolveOverlapIsIdempotent(t *testing.T) {
	store := &stubStore{
		assignments: []MemberAssignment{
			liveAssignment(1, 10, 100),
			liveAssignment(2, 11, 100),
		},
		defaults: map[int64][]capability.Capability{
			100: {capability.ViewDashboards, capability.CompleteTasks},
		},
		overrides: map[int64][]capability.Capability{
			10: {capability.ViewDashboards},
			11: {capability.CompleteTasks},
		},
	}
	res, err := NewResolver(store).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := capability.NewSet(capability.ViewDashboards, capability.CompleteTasks)
	if !res.Capabilities.Equal(want) {
		t.Fatalf("capabilities = %v, want %v", res.Capabilities.Sorted(), want.Sorted())
	}
}

func TestResolveSkipsInactiveAndDanglingRoles(t *testing.T) {
	inactive := liveAssignment(2, 11, 101)
	inactive.RoleActive = false
	dangling := liveAssignment(3, 12, 0)
	dangling.RoleFound = false
	dangling.RoleActive = false

	store := &stubStore{
		assignments: []MemberAssignment{liveAssignment(1, 10, 100), inactive, dangling},
		defaults: map[int64][]capability.Capability{
			100: {capability.ViewDashboards},
			101: {capability.ManageSettings},
		},
		overrides: map[int64][]capability.Capability{
			11: {capability.ManageUsers},
		},
	}
	res, err := NewResolver(store).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := capability.NewSet(capability.ViewDashboards)
	if !res.Capabilities.Equal(want) {
		t.Fatalf("capabilities = %v, want %v", res.Capabilities.Sorted(), want.Sorted())
	}
	if len(res.Assignments) != 1 || res.Assignments[0].AssignmentID != 1 {
		t.Fatalf("assignments = %+v, want only the live grant", res.Assignments)
	}
	if len(store.defaultCalls) != 1 || len(store.defaultCalls[0]) != 1 || store.defaultCalls[0][0] != 100 {
		t.Fatalf("default lookups = %v, want only catalog 100", store.defaultCalls)
	}
}

func TestResolveOrphanedCatalogStillAppliesOverrides(t *testing.T) {
	orphan := liveAssignment(1, 10, 0)
	orphan.RoleKey = ""
	orphan.DisplayName = ""

	store := &stubStore{
		assignments: []MemberAssignment{orphan},
		overrides: map[int64][]capability.Capability{
			10: {capability.ViewReports},
		},
	}
	res, err := NewResolver(store).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := capability.NewSet(capability.ViewReports)
	if !res.Capabilities.Equal(want) {
		t.Fatalf("capabilities = %v, want %v", res.Capabilities.Sorted(), want.Sorted())
	}
	if len(store.defaultCalls) != 0 {
		t.Fatalf("default lookups = %v, want none", store.defaultCalls)
	}
}

func TestResolveNoAssignmentsYieldsEmptySet(t *testing.T) {
	res, err := NewResolver(&stubStore{}).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Capabilities) != 0 {
		t.Fatalf("capabilities = %v, want empty", res.Capabilities.Sorted())
	}
	if len(res.Assignments) != 0 {
		t.Fatalf("assignments = %+v, want none", res.Assignments)
	}
}

func TestResolveRoleWithNoCapabilitiesKeepsAssignment(t *testing.T) {
	store := &stubStore{
		assignments: []MemberAssignment{liveAssignment(1, 10, 100)},
		defaults:    map[int64][]capability.Capability{100: {}},
	}
	res, err := NewResolver(store).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Capabilities) != 0 {
		t.Fatalf("capabilities = %v, want empty", res.Capabilities.Sorted())
	}
	if len(res.Assignments) != 1 {
		t.Fatalf("assignments = %d, want the held role listed", len(res.Assignments))
	}
}

func TestResolveStoreFailureReturnsEmptySetAndError(t *testing.T) {
	boom := errors.New("connection reset")
	cases := []struct {
		name  string
		store *stubStore
	}{
		{"assignments", &stubStore{assignmentsErr: boom}},
		{"defaults", &stubStore{
			assignments: []MemberAssignment{liveAssignment(1, 10, 100)},
			defaultsErr: boom,
		}},
		{"overrides", &stubStore{
			assignments:  []MemberAssignment{liveAssignment(1, 10, 100)},
			defaults:     map[int64][]capability.Capability{100: {capability.ViewDashboards}},
			overridesErr: boom,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewResolver(tc.store).Resolve(context.Background(), 7, 3)
			if !errors.Is(err, boom) {
				t.Fatalf("err = %v, want wrapped %v", err, boom)
			}
			if len(res.Capabilities) != 0 {
				t.Fatalf("capabilities = %v, want empty on failure", res.Capabilities.Sorted())
			}
		})
	}
}

func TestResolveMultiRoleScenario(t *testing.T) {
	// One member holding a clinician role and an auditing role, where the
	// practice granted the clinician role an extra reporting override.
	gp := liveAssignment(1, 10, 100)
	auditor := liveAssignment(2, 11, 200)
	auditor.RoleKey = "auditor"
	auditor.DisplayName = "Auditor"

	store := &stubStore{
		assignments: []MemberAssignment{gp, auditor},
		defaults: map[int64][]capability.Capability{
			100: {capability.ViewDashboards, capability.CompleteTasks, capability.ConductAudits},
			200: {capability.ManageAudits, capability.ConductAudits, capability.ViewReports},
		},
		overrides: map[int64][]capability.Capability{
			10: {capability.ExportReports},
		},
	}
	res, err := NewResolver(store).Resolve(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := capability.NewSet(
		capability.ViewDashboards, capability.CompleteTasks, capability.ConductAudits,
		capability.ManageAudits, capability.ViewReports, capability.ExportReports,
	)
	if !res.Capabilities.Equal(want) {
		t.Fatalf("capabilities = %v, want %v", res.Capabilities.Sorted(), want.Sorted())
	}
}
