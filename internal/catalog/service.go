package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/clinicore/clinicore/internal/capability"
)

// RepositoryPort defines data access methods for catalog entries.
type RepositoryPort interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	GetByKey(ctx context.Context, roleKey string) (*Entry, error)
	Create(ctx context.Context, e Entry) (*Entry, error)
	Update(ctx context.Context, id int64, displayName string, category Category, caps []capability.Capability, description string) (*Entry, error)
}

var roleKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// Service handles catalog business logic.
type Service struct {
	repo     RepositoryPort
	collator *collate.Collator
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{
		repo:     repo,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// List returns all entries sorted by (category, display_name) with
// locale-stable collation of display names inside each category.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	categoryRank := make(map[Category]int, 3)
	for i, c := range Categories() {
		categoryRank[c] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := categoryRank[entries[i].Category], categoryRank[entries[j].Category]
		if ri != rj {
			return ri < rj
		}
		return s.collator.CompareString(entries[i].DisplayName, entries[j].DisplayName) < 0
	})
	return entries, nil
}

// Get fetches a single entry.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a new catalog entry.
func (s *Service) Create(ctx context.Context, e Entry) (*Entry, error) {
	e.RoleKey = strings.TrimSpace(strings.ToLower(e.RoleKey))
	e.DisplayName = strings.TrimSpace(e.DisplayName)
	if !roleKeyPattern.MatchString(e.RoleKey) {
		return nil, fmt.Errorf("catalog: invalid role key %q", e.RoleKey)
	}
	if err := validateEntry(e.DisplayName, e.Category, e.DefaultCapabilities); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, e)
}

// Update validates and rewrites an existing entry.
func (s *Service) Update(ctx context.Context, id int64, displayName string, category Category, caps []capability.Capability, description string) (*Entry, error) {
	displayName = strings.TrimSpace(displayName)
	if err := validateEntry(displayName, category, caps); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, displayName, category, caps, description)
}

func validateEntry(displayName string, category Category, caps []capability.Capability) error {
	if displayName == "" {
		return fmt.Errorf("catalog: display name required")
	}
	if !category.Valid() {
		return fmt.Errorf("catalog: unknown category %q", category)
	}
	for _, c := range caps {
		if !capability.IsValid(c) {
			return fmt.Errorf("catalog: unknown capability %q", c)
		}
	}
	return nil
}
