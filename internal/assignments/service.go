package assignments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for assignments.
type RepositoryPort interface {
	ListForMember(ctx context.Context, userID, practiceID int64) ([]Assignment, error)
	ListHolders(ctx context.Context, practiceRoleID int64) ([]Assignment, error)
	Assign(ctx context.Context, userID, practiceID, practiceRoleID int64) error
	Unassign(ctx context.Context, userID, practiceRoleID int64) error
	RolePractice(ctx context.Context, practiceRoleID int64) (int64, error)
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

// Service orchestrates assignment mutations.
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

// ListForMember returns a user's assignments in the practice.
func (s *Service) ListForMember(ctx context.Context, userID, practiceID int64) ([]Assignment, error) {
	return s.repo.ListForMember(ctx, userID, practiceID)
}

// ListHolders returns everyone holding a practice role in the actor's
// practice.
func (s *Service) ListHolders(ctx context.Context, actor shared.Principal, practiceRoleID int64) ([]Assignment, error) {
	if err := s.checkScope(ctx, actor, practiceRoleID); err != nil {
		return nil, err
	}
	return s.repo.ListHolders(ctx, practiceRoleID)
}

// Assign grants the user the practice role. Assigning an already-held role
// is a no-op and succeeds.
func (s *Service) Assign(ctx context.Context, actor shared.Principal, userID, practiceRoleID int64) error {
	if err := s.checkScope(ctx, actor, practiceRoleID); err != nil {
		return err
	}
	if err := s.repo.Assign(ctx, userID, actor.PracticeID, practiceRoleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	s.afterMutation(ctx, actor, "assignment.add", userID, practiceRoleID)
	return nil
}

// Unassign removes the grant. Removing an absent grant succeeds.
func (s *Service) Unassign(ctx context.Context, actor shared.Principal, userID, practiceRoleID int64) error {
	if err := s.checkScope(ctx, actor, practiceRoleID); err != nil {
		return err
	}
	if err := s.repo.Unassign(ctx, userID, practiceRoleID); err != nil {
		return fmt.Errorf("unassign role: %w", err)
	}
	s.afterMutation(ctx, actor, "assignment.remove", userID, practiceRoleID)
	return nil
}

func (s *Service) checkScope(ctx context.Context, actor shared.Principal, practiceRoleID int64) error {
	practiceID, err := s.repo.RolePractice(ctx, practiceRoleID)
	if err != nil {
		return err
	}
	if practiceID != actor.PracticeID {
		return ErrRoleMissing
	}
	return nil
}

func (s *Service) afterMutation(ctx context.Context, actor shared.Principal, action string, userID, practiceRoleID int64) {
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
			Entity:     "user_role_assignment",
			EntityID:   strconv.FormatInt(practiceRoleID, 10),
			Meta:       map[string]any{"user_id": userID},
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("record activity", slog.Any("error", err), slog.String("action", action))
		}
	}
}
