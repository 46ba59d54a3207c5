package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound marks a missing profile row.
var ErrNotFound = errors.New("users: not found")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns one profile.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, is_active, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// ListMembers returns everyone holding at least one assignment in the
// practice, with the role keys granted there. The LEFT JOIN onto users keeps
// members visible even before their profile row syncs.
func (r *Repository) ListMembers(ctx context.Context, practiceID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.user_id, u.email, u.name,
		       ARRAY_REMOVE(ARRAY_AGG(c.role_key ORDER BY c.role_key), NULL)
		FROM user_role_assignments a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN practice_roles pr ON pr.id = a.practice_role_id AND pr.is_active
		LEFT JOIN role_catalog c ON c.id = pr.catalog_id
		WHERE a.practice_id = $1
		GROUP BY a.user_id, u.email, u.name
		ORDER BY u.name NULLS LAST, a.user_id`, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		var email, name pgtype.Text
		var keys []string
		if err := rows.Scan(&m.UserID, &email, &name, &keys); err != nil {
			return nil, err
		}
		if email.Valid {
			m.Email = email.String
			m.Name = name.String
		} else {
			m.ProfileMissing = true
		}
		if keys == nil {
			keys = []string{}
		}
		m.RoleKeys = keys
		out = append(out, m)
	}
	return out, rows.Err()
}
