package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/clinicore/clinicore/internal/capability"
)

type stubRepo struct {
	entries []Entry
	created *Entry
	updated *Entry
	err     error
}

func (s *stubRepo) List(ctx context.Context) ([]Entry, error) {
	return s.entries, s.err
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*Entry, error) {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return &s.entries[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubRepo) GetByKey(ctx context.Context, roleKey string) (*Entry, error) {
	for i := range s.entries {
		if s.entries[i].RoleKey == roleKey {
			return &s.entries[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, e Entry) (*Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &e
	return &e, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, displayName string, category Category, caps []capability.Capability, description string) (*Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.updated = &Entry{ID: id, DisplayName: displayName, Category: category, DefaultCapabilities: caps, Description: description}
	return s.updated, nil
}

func TestListOrdersByCategoryThenName(t *testing.T) {
	repo := &stubRepo{entries: []Entry{
		{ID: 1, RoleKey: "receptionist", DisplayName: "Receptionist", Category: CategorySupport},
		{ID: 2, RoleKey: "auditor", DisplayName: "auditor", Category: CategoryAdministrative},
		{ID: 3, RoleKey: "gp", DisplayName: "General Practitioner", Category: CategoryClinical},
		{ID: 4, RoleKey: "nurse", DisplayName: "Nurse", Category: CategoryClinical},
	}}
	entries, err := NewService(repo).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.RoleKey
	}
	want := "gp,nurse,auditor,receptionist"
	if strings.Join(got, ",") != want {
		t.Fatalf("order = %s, want %s", strings.Join(got, ","), want)
	}
}

func TestCreateRejectsBadRoleKeys(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	for _, key := range []string{"", "GP", "1lead", "role key", "a"} {
		_, err := svc.Create(context.Background(), Entry{
			RoleKey:     key,
			DisplayName: "Some Role",
			Category:    CategoryClinical,
		})
		if err == nil {
			t.Fatalf("role key %q accepted, want rejection", key)
		}
	}
	if repo.created != nil {
		t.Fatal("repository reached despite validation failure")
	}
}

func TestCreateNormalisesAndPersists(t *testing.T) {
	repo := &stubRepo{}
	entry, err := NewService(repo).Create(context.Background(), Entry{
		RoleKey:             "  Practice_Manager ",
		DisplayName:         " Practice Manager ",
		Category:            CategoryAdministrative,
		DefaultCapabilities: []capability.Capability{capability.ManageUsers},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.RoleKey != "practice_manager" {
		t.Fatalf("role key = %q, want normalised", entry.RoleKey)
	}
	if entry.DisplayName != "Practice Manager" {
		t.Fatalf("display name = %q, want trimmed", entry.DisplayName)
	}
}

func TestUpdateRejectsUnknownCapability(t *testing.T) {
	repo := &stubRepo{}
	_, err := NewService(repo).Update(context.Background(), 1, "General Practitioner", CategoryClinical,
		[]capability.Capability{"launch_rockets"}, "")
	if err == nil {
		t.Fatal("unknown capability accepted, want rejection")
	}
	if repo.updated != nil {
		t.Fatal("repository reached despite validation failure")
	}
}

func TestUpdateRejectsUnknownCategory(t *testing.T) {
	_, err := NewService(&stubRepo{}).Update(context.Background(), 1, "General Practitioner", Category("vibes"), nil, "")
	if err == nil {
		t.Fatal("unknown category accepted, want rejection")
	}
}
