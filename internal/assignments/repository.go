package assignments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("assignments: assignment not found")
	ErrRoleMissing = errors.New("assignments: practice role does not exist")
)

// Repository provides PostgreSQL backed persistence for assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForMember returns the user's assignments in the practice, joined to the
// activation and catalog rows for display. Broken joins come back with empty
// display fields rather than failing.
func (r *Repository) ListForMember(ctx context.Context, userID, practiceID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.user_id, a.practice_id, a.practice_role_id, a.created_at,
		       COALESCE(pr.is_active, FALSE),
		       c.role_key, c.display_name
		FROM user_role_assignments a
		LEFT JOIN practice_roles pr ON pr.id = a.practice_role_id
		LEFT JOIN role_catalog c ON c.id = pr.catalog_id
		WHERE a.user_id = $1 AND a.practice_id = $2
		ORDER BY a.created_at, a.id`, userID, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var roleKey, displayName pgtype.Text
		if err := rows.Scan(&a.ID, &a.UserID, &a.PracticeID, &a.PracticeRoleID, &a.CreatedAt,
			&a.IsActive, &roleKey, &displayName); err != nil {
			return nil, err
		}
		a.RoleKey = roleKey.String
		a.DisplayName = displayName.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListHolders returns every user holding the given practice role.
func (r *Repository) ListHolders(ctx context.Context, practiceRoleID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, practice_id, practice_role_id, created_at
		FROM user_role_assignments
		WHERE practice_role_id = $1
		ORDER BY created_at, id`, practiceRoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.PracticeID, &a.PracticeRoleID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Assign is an insert-or-noop on the (user, practice role) pair. The store
// may or may not enforce the pair's uniqueness; both the ON CONFLICT path and
// a raced unique violation are success, because the desired end state (the
// row exists) already holds.
func (r *Repository) Assign(ctx context.Context, userID, practiceID, practiceRoleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_role_assignments (user_id, practice_id, practice_role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, practice_role_id) DO NOTHING`,
		userID, practiceID, practiceRoleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil
			case "23503":
				return ErrRoleMissing
			}
		}
		return err
	}
	return nil
}

// Unassign deletes the pair. Removing an absent pair is success.
func (r *Repository) Unassign(ctx context.Context, userID, practiceRoleID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_role_assignments WHERE user_id = $1 AND practice_role_id = $2`,
		userID, practiceRoleID)
	return err
}

// IsMember reports whether the user holds any assignment in the practice.
// Assignments define the practice roster; even a grant to a deactivated role
// keeps the member visible.
func (r *Repository) IsMember(ctx context.Context, userID, practiceID int64) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_role_assignments
			WHERE user_id = $1 AND practice_id = $2
		)`, userID, practiceID).Scan(&member)
	return member, err
}

// RolePractice resolves the practice owning a practice role, used to scope
// mutations to the caller's practice.
func (r *Repository) RolePractice(ctx context.Context, practiceRoleID int64) (int64, error) {
	var practiceID int64
	err := r.pool.QueryRow(ctx,
		`SELECT practice_id FROM practice_roles WHERE id = $1`, practiceRoleID).
		Scan(&practiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRoleMissing
		}
		return 0, err
	}
	return practiceID, nil
}
