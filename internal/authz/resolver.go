package authz

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/clinicore/clinicore/internal/capability"
)

// Resolver recomputes effective capability sets from the store on every
// call. Wrap it in a CachedResolver for the hot path.
type Resolver struct {
	store Store
}

// NewResolver constructs a resolver over a store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve computes the effective capability set for the user within the
// practice. A user with no assignments, or only assignments to inactive or
// dangling roles, gets an empty set. Store failures surface as an error with
// an empty set; callers must treat that as denial, never as a grant.
func (r *Resolver) Resolve(ctx context.Context, userID, practiceID int64) (Resolution, error) {
	empty := Resolution{UserID: userID, PracticeID: practiceID, Capabilities: capability.NewSet()}

	assignments, err := r.store.ListMemberAssignments(ctx, userID, practiceID)
	if err != nil {
		return empty, fmt.Errorf("list assignments: %w", err)
	}

	live := assignments[:0:0]
	for _, m := range assignments {
		if m.live() {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		return empty, nil
	}

	roleIDs := make([]int64, 0, len(live))
	catalogIDs := make([]int64, 0, len(live))
	seenCatalog := make(map[int64]bool, len(live))
	for _, m := range live {
		roleIDs = append(roleIDs, m.PracticeRoleID)
		if m.CatalogID != 0 && !seenCatalog[m.CatalogID] {
			seenCatalog[m.CatalogID] = true
			catalogIDs = append(catalogIDs, m.CatalogID)
		}
	}

	var defaults, overrides map[int64][]capability.Capability
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defaults, err = r.store.DefaultCapabilities(gctx, catalogIDs)
		if err != nil {
			return fmt.Errorf("catalog defaults: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		overrides, err = r.store.Overrides(gctx, roleIDs)
		if err != nil {
			return fmt.Errorf("overrides: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return empty, err
	}

	caps := capability.NewSet()
	for _, m := range live {
		for _, c := range defaults[m.CatalogID] {
			caps.Add(c)
		}
		for _, c := range overrides[m.PracticeRoleID] {
			caps.Add(c)
		}
	}

	return Resolution{
		UserID:       userID,
		PracticeID:   practiceID,
		Capabilities: caps,
		Assignments:  live,
	}, nil
}
