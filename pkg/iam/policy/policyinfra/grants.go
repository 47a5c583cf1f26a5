package policyinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

// PostgresGrantRepository is the PostgreSQL implementation of
// policy.GrantRepository.
type PostgresGrantRepository struct {
	db *sqlx.DB
}

// NewPostgresGrantRepository creates a new repository instance.
func NewPostgresGrantRepository(db *sqlx.DB) policy.GrantRepository {
	return &PostgresGrantRepository{
		db: db,
	}
}

const upsertGrantQuery = `
	INSERT INTO authz_role_grants (
		id, role, endpoint_id, can_read, can_write, can_delete,
		is_active, created_at, updated_at
	) VALUES (
		:id, :role, :endpoint_id, :can_read, :can_write, :can_delete,
		:is_active, :created_at, :updated_at
	)
	ON CONFLICT (role, endpoint_id) DO UPDATE SET
		can_read = EXCLUDED.can_read,
		can_write = EXCLUDED.can_write,
		can_delete = EXCLUDED.can_delete,
		is_active = EXCLUDED.is_active,
		updated_at = EXCLUDED.updated_at`

// List returns every grant, active or not.
func (r *PostgresGrantRepository) List(ctx context.Context) ([]policy.RoleGrant, error) {
	var grants []policy.RoleGrant
	query := `SELECT * FROM authz_role_grants ORDER BY role, endpoint_id`
	if err := r.db.SelectContext(ctx, &grants, query); err != nil {
		return nil, errx.Wrap(err, "failed to list role grants", errx.TypeInternal)
	}
	return grants, nil
}

// Find looks up the grant for (role, endpoint).
func (r *PostgresGrantRepository) Find(ctx context.Context, rl role.Role, endpointID kernel.EndpointID) (*policy.RoleGrant, error) {
	var g policy.RoleGrant
	query := `SELECT * FROM authz_role_grants WHERE role = $1 AND endpoint_id = $2`
	err := r.db.GetContext(ctx, &g, query, rl.String(), endpointID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, policy.ErrGrantNotFound().
				WithDetail("role", rl.String()).
				WithDetail("endpoint_id", endpointID.String())
		}
		return nil, errx.Wrap(err, "failed to find role grant", errx.TypeInternal)
	}
	return &g, nil
}

// Upsert inserts the grant or refreshes the flags of an existing one.
func (r *PostgresGrantRepository) Upsert(ctx context.Context, grant policy.RoleGrant) error {
	if _, err := r.db.NamedExecContext(ctx, upsertGrantQuery, grant); err != nil {
		return errx.Wrap(err, "failed to upsert role grant", errx.TypeInternal).
			WithDetail("role", grant.Role.String()).
			WithDetail("endpoint_id", grant.EndpointID.String())
	}
	return nil
}

// Deactivate turns the grant off without deleting the row, so the flags are
// kept if it is later re-granted.
func (r *PostgresGrantRepository) Deactivate(ctx context.Context, rl role.Role, endpointID kernel.EndpointID) error {
	query := `UPDATE authz_role_grants SET is_active = false, updated_at = NOW() WHERE role = $1 AND endpoint_id = $2`
	result, err := r.db.ExecContext(ctx, query, rl.String(), endpointID.String())
	if err != nil {
		return errx.Wrap(err, "failed to deactivate role grant", errx.TypeInternal).
			WithDetail("role", rl.String()).
			WithDetail("endpoint_id", endpointID.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on grant deactivate", errx.TypeInternal)
	}
	if rows == 0 {
		return policy.ErrGrantNotFound().
			WithDetail("role", rl.String()).
			WithDetail("endpoint_id", endpointID.String())
	}
	return nil
}

// BulkUpsert applies a batch of grants in one transaction. Used by the
// default-grant seeding convenience, never by the request path.
func (r *PostgresGrantRepository) BulkUpsert(ctx context.Context, grants []policy.RoleGrant) error {
	if len(grants) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin grant transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	for _, g := range grants {
		if _, err := tx.NamedExecContext(ctx, upsertGrantQuery, g); err != nil {
			return errx.Wrap(err, "failed to upsert role grant in batch", errx.TypeInternal).
				WithDetail("role", g.Role.String()).
				WithDetail("endpoint_id", g.EndpointID.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit grant batch", errx.TypeInternal)
	}
	return nil
}
