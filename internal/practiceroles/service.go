package practiceroles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for practice roles.
type RepositoryPort interface {
	ListForPractice(ctx context.Context, practiceID int64) ([]PracticeRole, error)
	Get(ctx context.Context, id int64) (*PracticeRole, error)
	Activate(ctx context.Context, practiceID, catalogID int64) (*PracticeRole, error)
	Deactivate(ctx context.Context, id int64) error
	AddOverride(ctx context.Context, practiceRoleID int64, cap capability.Capability) error
	RemoveOverride(ctx context.Context, practiceRoleID int64, cap capability.Capability) error
	ListOverrides(ctx context.Context, practiceRoleIDs []int64) ([]Override, error)
}

// Invalidator re-triggers resolution for a practice after a successful
// mutation. Implemented by the authz cache.
type Invalidator interface {
	InvalidatePractice(ctx context.Context, practiceID int64) error
}

// ActivityRecorder is the platform activity feed.
type ActivityRecorder interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// Service orchestrates practice role mutations. Each successful write
// invalidates the resolution cache for the practice so observers recompute.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	activity    ActivityRecorder
	logger      *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, invalidator Invalidator, activity ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, activity: activity, logger: logger}
}

// ListForPractice returns the practice's activations with overrides attached.
func (s *Service) ListForPractice(ctx context.Context, practiceID int64) ([]PracticeRole, error) {
	roles, err := s.repo.ListForPractice(ctx, practiceID)
	if err != nil {
		return nil, fmt.Errorf("list practice roles: %w", err)
	}
	if len(roles) == 0 {
		return roles, nil
	}

	ids := make([]int64, len(roles))
	index := make(map[int64]int, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
		index[role.ID] = i
	}
	overrides, err := s.repo.ListOverrides(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	for _, o := range overrides {
		if i, ok := index[o.PracticeRoleID]; ok {
			roles[i].Overrides = append(roles[i].Overrides, o.Capability)
		}
	}
	return roles, nil
}

// Activate enables a catalog role for the practice. Calling it again for the
// same pair reactivates the existing row; it never duplicates.
func (s *Service) Activate(ctx context.Context, actor shared.Principal, catalogID int64) (*PracticeRole, error) {
	role, err := s.repo.Activate(ctx, actor.PracticeID, catalogID)
	if err != nil {
		return nil, fmt.Errorf("activate role: %w", err)
	}
	s.afterMutation(ctx, actor, "practice_role.activate", role.ID, map[string]any{"catalog_id": catalogID})
	return role, nil
}

// Deactivate disables the activation, instantly revoking the role for every
// holder. Assignments and overrides stay in place, inert.
func (s *Service) Deactivate(ctx context.Context, actor shared.Principal, practiceRoleID int64) error {
	if _, err := s.ownedRole(ctx, actor, practiceRoleID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, practiceRoleID); err != nil {
		return fmt.Errorf("deactivate role: %w", err)
	}
	s.afterMutation(ctx, actor, "practice_role.deactivate", practiceRoleID, nil)
	return nil
}

// AddOverride grants an extra capability beyond the catalog defaults.
// Overrides are additive only; defaults cannot be subtracted.
func (s *Service) AddOverride(ctx context.Context, actor shared.Principal, practiceRoleID int64, cap capability.Capability) error {
	if !capability.IsValid(cap) {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, cap)
	}
	if _, err := s.ownedRole(ctx, actor, practiceRoleID); err != nil {
		return err
	}
	if err := s.repo.AddOverride(ctx, practiceRoleID, cap); err != nil {
		return fmt.Errorf("add override: %w", err)
	}
	s.afterMutation(ctx, actor, "practice_role.override.add", practiceRoleID, map[string]any{"capability": string(cap)})
	return nil
}

// RemoveOverride removes a previously added capability. Removing a catalog
// default or an absent pair succeeds and changes nothing.
func (s *Service) RemoveOverride(ctx context.Context, actor shared.Principal, practiceRoleID int64, cap capability.Capability) error {
	if !capability.IsValid(cap) {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, cap)
	}
	if _, err := s.ownedRole(ctx, actor, practiceRoleID); err != nil {
		return err
	}
	if err := s.repo.RemoveOverride(ctx, practiceRoleID, cap); err != nil {
		return fmt.Errorf("remove override: %w", err)
	}
	s.afterMutation(ctx, actor, "practice_role.override.remove", practiceRoleID, map[string]any{"capability": string(cap)})
	return nil
}

// ownedRole verifies the activation belongs to the actor's practice.
func (s *Service) ownedRole(ctx context.Context, actor shared.Principal, practiceRoleID int64) (*PracticeRole, error) {
	role, err := s.repo.Get(ctx, practiceRoleID)
	if err != nil {
		return nil, err
	}
	if role.PracticeID != actor.PracticeID {
		return nil, ErrNotFound
	}
	return role, nil
}

func (s *Service) afterMutation(ctx context.Context, actor shared.Principal, action string, practiceRoleID int64, meta map[string]any) {
	if s.invalidator != nil {
		if err := s.invalidator.InvalidatePractice(ctx, actor.PracticeID); err != nil && s.logger != nil {
			s.logger.Warn("invalidate resolution cache", slog.Any("error", err), slog.Int64("practice_id", actor.PracticeID))
		}
	}
	if s.activity != nil {
		err := s.activity.Record(ctx, shared.ActivityEntry{
			ActorID:    actor.UserID,
			PracticeID: actor.PracticeID,
			Action:     action,
			Entity:     "practice_role",
			EntityID:   strconv.FormatInt(practiceRoleID, 10),
			Meta:       meta,
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("record activity", slog.Any("error", err), slog.String("action", action))
		}
	}
}
