package capability

import "testing"

func TestVocabularyClosed(t *testing.T) {
	for _, c := range All() {
		if !IsValid(c) {
			t.Fatalf("capability %q not recognised by IsValid", c)
		}
	}
	if IsValid("delete_everything") {
		t.Fatalf("unknown token accepted")
	}
	if IsValid("") {
		t.Fatalf("empty token accepted")
	}
}

func TestSetUnionIdempotent(t *testing.T) {
	s := NewSet(ViewDashboards, AssignRoles)
	s.Union(NewSet(AssignRoles, ManageUsers))
	s.Add(ManageUsers)

	if len(s) != 3 {
		t.Fatalf("expected 3 members, got %d", len(s))
	}
	want := NewSet(ViewDashboards, AssignRoles, ManageUsers)
	if !s.Equal(want) {
		t.Fatalf("expected %v, got %v", want.Sorted(), s.Sorted())
	}
}

func TestHasAnyHasAll(t *testing.T) {
	s := NewSet(ViewDashboards, AssignRoles)

	cases := []struct {
		name     string
		required []Capability
		any, all bool
	}{
		{"one present one absent", []Capability{ViewDashboards, ManageUsers}, true, false},
		{"both present", []Capability{ViewDashboards, AssignRoles}, true, true},
		{"none present", []Capability{ManageUsers, ManageSettings}, false, false},
		{"empty requirement", nil, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.HasAny(tc.required...); got != tc.any {
				t.Fatalf("HasAny(%v) = %v, want %v", tc.required, got, tc.any)
			}
			if got := s.HasAll(tc.required...); got != tc.all {
				t.Fatalf("HasAll(%v) = %v, want %v", tc.required, got, tc.all)
			}
		})
	}
}

func TestEmptySetDeniesEverything(t *testing.T) {
	var s Set
	for _, c := range All() {
		if s.Has(c) {
			t.Fatalf("empty set claims %q", c)
		}
	}
	if s.HasAny(ViewDashboards) {
		t.Fatalf("empty set satisfied a non-empty HasAny query")
	}
}

func TestSortedIsStable(t *testing.T) {
	a := NewSet(ManageUsers, AssignRoles, ViewDashboards)
	b := NewSet(ViewDashboards, ManageUsers, AssignRoles)
	as, bs := a.Sorted(), b.Sorted()
	if len(as) != len(bs) {
		t.Fatalf("length mismatch")
	}
	for i := range as {
		if as[i] != bs[i] {
			t.Fatalf("order differs at %d: %q vs %q", i, as[i], bs[i])
		}
	}
}
