package practiceroles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/catalog"
)

var (
	ErrNotFound          = errors.New("practiceroles: practice role not found")
	ErrCatalogMissing    = errors.New("practiceroles: catalog entry does not exist")
	ErrUnknownCapability = errors.New("practiceroles: capability not in vocabulary")
)

// Repository provides PostgreSQL backed persistence for practice roles and
// their capability overrides.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForPractice returns every activation for the practice, active or not,
// each joined to its catalog entry when that entry still exists.
func (r *Repository) ListForPractice(ctx context.Context, practiceID int64) ([]PracticeRole, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pr.id, pr.practice_id, pr.catalog_id, pr.is_active, pr.created_at, pr.updated_at,
		       c.id, c.role_key, c.display_name, c.category, c.default_capabilities, c.description, c.created_at, c.updated_at
		FROM practice_roles pr
		LEFT JOIN role_catalog c ON c.id = pr.catalog_id
		WHERE pr.practice_id = $1
		ORDER BY pr.created_at, pr.id`, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []PracticeRole
	for rows.Next() {
		role, err := scanPracticeRoleJoined(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// Get fetches one activation by ID without joins.
func (r *Repository) Get(ctx context.Context, id int64) (*PracticeRole, error) {
	var role PracticeRole
	err := r.pool.QueryRow(ctx, `
		SELECT id, practice_id, catalog_id, is_active, created_at, updated_at
		FROM practice_roles WHERE id = $1`, id).
		Scan(&role.ID, &role.PracticeID, &role.CatalogID, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// Activate is an insert-or-reactivate: when the (practice, catalog) pair
// already has a row it is flipped active, otherwise a new active row is
// created. Never produces a second row for the pair.
func (r *Repository) Activate(ctx context.Context, practiceID, catalogID int64) (*PracticeRole, error) {
	var role PracticeRole
	err := r.pool.QueryRow(ctx, `
		INSERT INTO practice_roles (practice_id, catalog_id, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (practice_id, catalog_id)
		DO UPDATE SET is_active = TRUE, updated_at = NOW()
		RETURNING id, practice_id, catalog_id, is_active, created_at, updated_at`,
		practiceID, catalogID).
		Scan(&role.ID, &role.PracticeID, &role.CatalogID, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrCatalogMissing
		}
		return nil, err
	}
	return &role, nil
}

// Deactivate flips the activation off. Overrides and assignments are left in
// place; the resolver ignores them while the role is inactive.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE practice_roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddOverride is an insert-or-noop on the (practice_role, capability) pair.
// A duplicate insert means the desired end state already holds, so both the
// ON CONFLICT clause and a racing unique violation count as success.
func (r *Repository) AddOverride(ctx context.Context, practiceRoleID int64, cap capability.Capability) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO capability_overrides (practice_role_id, capability)
		VALUES ($1, $2)
		ON CONFLICT (practice_role_id, capability) DO NOTHING`,
		practiceRoleID, string(cap))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil
			case "23503":
				return ErrNotFound
			}
		}
		return err
	}
	return nil
}

// RemoveOverride deletes the pair if present. Removing a pair that was never
// added, including a catalog default, is success and changes nothing.
func (r *Repository) RemoveOverride(ctx context.Context, practiceRoleID int64, cap capability.Capability) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM capability_overrides WHERE practice_role_id = $1 AND capability = $2`,
		practiceRoleID, string(cap))
	return err
}

// ListOverrides fetches overrides for many practice roles in one round trip.
func (r *Repository) ListOverrides(ctx context.Context, practiceRoleIDs []int64) ([]Override, error) {
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

	var overrides []Override
	for rows.Next() {
		var o Override
		var cap string
		if err := rows.Scan(&o.PracticeRoleID, &cap); err != nil {
			return nil, err
		}
		o.Capability = capability.Capability(cap)
		// Tokens that fell out of the vocabulary are inert, not errors.
		if !capability.IsValid(o.Capability) {
			continue
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func scanPracticeRoleJoined(rows pgx.Rows) (*PracticeRole, error) {
	var role PracticeRole
	var (
		cID          pgtype.Int8
		cKey         pgtype.Text
		cName        pgtype.Text
		cCategory    pgtype.Text
		cCaps        []string
		cDescription pgtype.Text
		cCreated     pgtype.Timestamptz
		cUpdated     pgtype.Timestamptz
	)
	if err := rows.Scan(
		&role.ID, &role.PracticeID, &role.CatalogID, &role.IsActive, &role.CreatedAt, &role.UpdatedAt,
		&cID, &cKey, &cName, &cCategory, &cCaps, &cDescription, &cCreated, &cUpdated,
	); err != nil {
		return nil, err
	}
	if cID.Valid {
		entry := catalog.Entry{
			ID:          cID.Int64,
			RoleKey:     cKey.String,
			DisplayName: cName.String,
			Category:    catalog.Category(cCategory.String),
			Description: cDescription.String,
			CreatedAt:   cCreated.Time,
			UpdatedAt:   cUpdated.Time,
		}
		for _, s := range cCaps {
			c := capability.Capability(s)
			if capability.IsValid(c) {
				entry.DefaultCapabilities = append(entry.DefaultCapabilities, c)
			}
		}
		role.Catalog = &entry
	}
	return &role, nil
}
