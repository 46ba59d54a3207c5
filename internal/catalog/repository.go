package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/capability"
)

var (
	ErrNotFound      = errors.New("catalog: entry not found")
	ErrAlreadyExists = errors.New("catalog: role key already exists")
)

// Repository provides PostgreSQL backed persistence for catalog entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, role_key, display_name, category, default_capabilities, description, created_at, updated_at`

// List returns every catalog entry ordered by (category, display_name). The
// service applies locale-aware collation on top of this baseline ordering.
func (r *Repository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM role_catalog ORDER BY category, display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Get fetches one entry by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Entry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM role_catalog WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// GetByKey fetches one entry by its stable role key.
func (r *Repository) GetByKey(ctx context.Context, roleKey string) (*Entry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM role_catalog WHERE role_key = $1`, roleKey)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Create inserts a new entry. A duplicate role key surfaces as
// ErrAlreadyExists; unlike the per-practice joins, catalog keys are not
// idempotently upserted.
func (r *Repository) Create(ctx context.Context, e Entry) (*Entry, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO role_catalog (role_key, display_name, category, default_capabilities, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+entryColumns,
		e.RoleKey, e.DisplayName, string(e.Category), capsToStrings(e.DefaultCapabilities), e.Description)
	entry, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return entry, nil
}

// Update rewrites the mutable attributes of an entry. The role key is stable
// and cannot be changed.
func (r *Repository) Update(ctx context.Context, id int64, displayName string, category Category, caps []capability.Capability, description string) (*Entry, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE role_catalog
		 SET display_name = $2, category = $3, default_capabilities = $4, description = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+entryColumns,
		id, displayName, string(category), capsToStrings(caps), description)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var category string
	var caps []string
	if err := row.Scan(&e.ID, &e.RoleKey, &e.DisplayName, &category, &caps, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Category = Category(category)
	e.DefaultCapabilities = stringsToCaps(caps)
	return &e, nil
}

func capsToStrings(caps []capability.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

// stringsToCaps converts stored tokens, dropping any that fell out of the
// vocabulary. Stale tokens contribute nothing rather than failing the read.
func stringsToCaps(raw []string) []capability.Capability {
	out := make([]capability.Capability, 0, len(raw))
	for _, s := range raw {
		c := capability.Capability(s)
		if capability.IsValid(c) {
			out = append(out, c)
		}
	}
	return out
}
