package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/capability"
)

// Repository implements Store against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListMemberAssignments loads the user's assignments joined to activations
// and catalog entries. LEFT JOINs keep assignments with broken links visible
// so the resolver can discard them deliberately.
func (r *Repository) ListMemberAssignments(ctx context.Context, userID, practiceID int64) ([]MemberAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.user_id, a.practice_id, a.practice_role_id, a.created_at,
		       pr.id, COALESCE(pr.is_active, FALSE),
		       c.id, c.role_key, c.display_name
		FROM user_role_assignments a
		LEFT JOIN practice_roles pr ON pr.id = a.practice_role_id
		LEFT JOIN role_catalog c ON c.id = pr.catalog_id
		WHERE a.user_id = $1 AND a.practice_id = $2
		ORDER BY a.created_at, a.id`, userID, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberAssignment
	for rows.Next() {
		var m MemberAssignment
		var roleID, catalogID pgtype.Int8
		var roleKey, displayName pgtype.Text
		if err := rows.Scan(&m.AssignmentID, &m.UserID, &m.PracticeID, &m.PracticeRoleID, &m.AssignedAt,
			&roleID, &m.RoleActive, &catalogID, &roleKey, &displayName); err != nil {
			return nil, err
		}
		m.RoleFound = roleID.Valid
		if catalogID.Valid {
			m.CatalogID = catalogID.Int64
			m.RoleKey = roleKey.String
			m.DisplayName = displayName.String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DefaultCapabilities batch-loads catalog default sets.
func (r *Repository) DefaultCapabilities(ctx context.Context, catalogIDs []int64) (map[int64][]capability.Capability, error) {
	if len(catalogIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, default_capabilities FROM role_catalog WHERE id = ANY($1)`, catalogIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]capability.Capability, len(catalogIDs))
	for rows.Next() {
		var id int64
		var raw []string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		out[id] = filterKnown(raw)
	}
	return out, rows.Err()
}

// Overrides batch-loads override capabilities for many practice roles in one
// round trip.
func (r *Repository) Overrides(ctx context.Context, practiceRoleIDs []int64) (map[int64][]capability.Capability, error) {
	if len(practiceRoleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT practice_role_id, capability
		FROM capability_overrides
		WHERE practice_role_id = ANY($1)`, practiceRoleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]capability.Capability)
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		c := capability.Capability(raw)
		if !capability.IsValid(c) {
			continue
		}
		out[id] = append(out[id], c)
	}
	return out, rows.Err()
}

func filterKnown(raw []string) []capability.Capability {
	out := make([]capability.Capability, 0, len(raw))
	for _, s := range raw {
		c := capability.Capability(s)
		if capability.IsValid(c) {
			out = append(out, c)
		}
	}
	return out
}
