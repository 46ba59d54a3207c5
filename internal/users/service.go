package users

import (
	"context"
	"fmt"
	"log/slog"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (User, error)
	ListMembers(ctx context.Context, practiceID int64) ([]Member, error)
}

// Service wraps profile reads.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs the service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Get returns one profile.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// ListMembers returns the practice's membership roster.
func (s *Service) ListMembers(ctx context.Context, practiceID int64) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx, practiceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
