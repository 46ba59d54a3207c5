package practiceroles

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/shared"
)

type stubRepo struct {
	roles     map[int64]*PracticeRole
	overrides []Override

	activated   []int64
	deactivated []int64
	added       []Override
	removed     []Override
	err         error
}

func (s *stubRepo) ListForPractice(ctx context.Context, practiceID int64) ([]PracticeRole, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []PracticeRole
	for _, r := range s.roles {
		if r.PracticeID == practiceID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*PracticeRole, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *stubRepo) Activate(ctx context.Context, practiceID, catalogID int64) (*PracticeRole, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.roles {
		if r.PracticeID == practiceID && r.CatalogID == catalogID {
			r.IsActive = true
			s.activated = append(s.activated, r.ID)
			return r, nil
		}
	}
	role := &PracticeRole{ID: int64(len(s.roles) + 1), PracticeID: practiceID, CatalogID: catalogID, IsActive: true}
	if s.roles == nil {
		s.roles = map[int64]*PracticeRole{}
	}
	s.roles[role.ID] = role
	s.activated = append(s.activated, role.ID)
	return role, nil
}

func (s *stubRepo) Deactivate(ctx context.Context, id int64) error {
	if s.err != nil {
		return s.err
	}
	r, ok := s.roles[id]
	if !ok {
		return ErrNotFound
	}
	r.IsActive = false
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *stubRepo) AddOverride(ctx context.Context, practiceRoleID int64, cap capability.Capability) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, Override{PracticeRoleID: practiceRoleID, Capability: cap})
	return nil
}

func (s *stubRepo) RemoveOverride(ctx context.Context, practiceRoleID int64, cap capability.Capability) error {
	if s.err != nil {
		return s.err
	}
	s.removed = append(s.removed, Override{PracticeRoleID: practiceRoleID, Capability: cap})
	return nil
}

func (s *stubRepo) ListOverrides(ctx context.Context, practiceRoleIDs []int64) ([]Override, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.overrides, nil
}

type recordingInvalidator struct {
	practices []int64
}

func (r *recordingInvalidator) InvalidatePractice(ctx context.Context, practiceID int64) error {
	r.practices = append(r.practices, practiceID)
	return nil
}

type recordingActivity struct {
	actions []string
}

func (r *recordingActivity) Record(ctx context.Context, entry shared.ActivityEntry) error {
	r.actions = append(r.actions, entry.Action)
	return nil
}

var manager = shared.Principal{UserID: 2, PracticeID: 3}

func newFixture(repo *stubRepo) (*Service, *recordingInvalidator, *recordingActivity) {
	inv := &recordingInvalidator{}
	act := &recordingActivity{}
	return NewService(repo, inv, act, nil), inv, act
}

func TestActivateTwiceKeepsOneRow(t *testing.T) {
	repo := &stubRepo{}
	svc, inv, _ := newFixture(repo)

	first, err := svc.Activate(context.Background(), manager, 100)
	if err != nil {
		t.Fatalf("first activate: %v", err)
	}
	second, err := svc.Activate(context.Background(), manager, 100)
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("activation IDs %d and %d, want one row reused", first.ID, second.ID)
	}
	if len(repo.roles) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.roles))
	}
	if len(inv.practices) != 2 {
		t.Fatalf("invalidations = %d, want one per successful mutation", len(inv.practices))
	}
}

func TestDeactivateLeavesRowInPlace(t *testing.T) {
	repo := &stubRepo{roles: map[int64]*PracticeRole{
		10: {ID: 10, PracticeID: 3, CatalogID: 100, IsActive: true},
	}}
	svc, inv, act := newFixture(repo)

	if err := svc.Deactivate(context.Background(), manager, 10); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if repo.roles[10].IsActive {
		t.Fatal("role still active")
	}
	if inv.practices[0] != 3 {
		t.Fatalf("invalidated practice %d, want 3", inv.practices[0])
	}
	if act.actions[0] != "practice_role.deactivate" {
		t.Fatalf("activity = %q", act.actions[0])
	}
}

func TestMutationsScopedToActorPractice(t *testing.T) {
	repo := &stubRepo{roles: map[int64]*PracticeRole{
		10: {ID: 10, PracticeID: 99, CatalogID: 100, IsActive: true},
	}}
	svc, inv, _ := newFixture(repo)

	if err := svc.Deactivate(context.Background(), manager, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deactivate foreign role: err = %v, want ErrNotFound", err)
	}
	if err := svc.AddOverride(context.Background(), manager, 10, capability.ManageTasks); !errors.Is(err, ErrNotFound) {
		t.Fatalf("override foreign role: err = %v, want ErrNotFound", err)
	}
	if len(inv.practices) != 0 {
		t.Fatal("failed mutations must not invalidate")
	}
}

func TestAddOverrideRejectsUnknownCapability(t *testing.T) {
	repo := &stubRepo{roles: map[int64]*PracticeRole{
		10: {ID: 10, PracticeID: 3, CatalogID: 100, IsActive: true},
	}}
	svc, inv, _ := newFixture(repo)

	err := svc.AddOverride(context.Background(), manager, 10, "fly_helicopters")
	if !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("err = %v, want ErrUnknownCapability", err)
	}
	if len(repo.added) != 0 {
		t.Fatal("repository reached with invalid capability")
	}
	if len(inv.practices) != 0 {
		t.Fatal("failed mutations must not invalidate")
	}
}

func TestRemoveOverrideIsIdempotent(t *testing.T) {
	repo := &stubRepo{roles: map[int64]*PracticeRole{
		10: {ID: 10, PracticeID: 3, CatalogID: 100, IsActive: true},
	}}
	svc, inv, _ := newFixture(repo)

	// Nothing was ever added for this pair; removal still succeeds.
	if err := svc.RemoveOverride(context.Background(), manager, 10, capability.ViewReports); err != nil {
		t.Fatalf("remove absent override: %v", err)
	}
	if err := svc.RemoveOverride(context.Background(), manager, 10, capability.ViewReports); err != nil {
		t.Fatalf("remove again: %v", err)
	}
	if len(inv.practices) != 2 {
		t.Fatalf("invalidations = %d, want one per call", len(inv.practices))
	}
}

func TestListAttachesOverrides(t *testing.T) {
	repo := &stubRepo{
		roles: map[int64]*PracticeRole{
			10: {ID: 10, PracticeID: 3, CatalogID: 100, IsActive: true},
		},
		overrides: []Override{{PracticeRoleID: 10, Capability: capability.ManageTasks}},
	}
	svc, _, _ := newFixture(repo)

	roles, err := svc.ListForPractice(context.Background(), 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(roles) != 1 {
		t.Fatalf("roles = %d, want 1", len(roles))
	}
	if len(roles[0].Overrides) != 1 || roles[0].Overrides[0] != capability.ManageTasks {
		t.Fatalf("overrides = %v, want attached manage_tasks", roles[0].Overrides)
	}
}
