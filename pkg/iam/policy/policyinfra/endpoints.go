package policyinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/kernel"
)

// PostgresEndpointRepository is the PostgreSQL implementation of
// policy.EndpointRepository.
type PostgresEndpointRepository struct {
	db *sqlx.DB
}

// NewPostgresEndpointRepository creates a new repository instance.
func NewPostgresEndpointRepository(db *sqlx.DB) policy.EndpointRepository {
	return &PostgresEndpointRepository{
		db: db,
	}
}

// List returns every registered endpoint.
func (r *PostgresEndpointRepository) List(ctx context.Context) ([]policy.Endpoint, error) {
	var endpoints []policy.Endpoint
	query := `SELECT * FROM authz_endpoints ORDER BY path, method`
	if err := r.db.SelectContext(ctx, &endpoints, query); err != nil {
		return nil, errx.Wrap(err, "failed to list endpoints", errx.TypeInternal)
	}
	return endpoints, nil
}

// FindByPathMethod looks up an endpoint by its exact pattern and method.
func (r *PostgresEndpointRepository) FindByPathMethod(ctx context.Context, path, method string) (*policy.Endpoint, error) {
	var e policy.Endpoint
	query := `SELECT * FROM authz_endpoints WHERE path = $1 AND method = $2`
	err := r.db.GetContext(ctx, &e, query, path, method)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, policy.ErrEndpointNotFound().
				WithDetail("path", path).
				WithDetail("method", method)
		}
		return nil, errx.Wrap(err, "failed to find endpoint", errx.TypeInternal)
	}
	return &e, nil
}

// SeedIfAbsent inserts endpoints not yet present. The ON CONFLICT DO NOTHING
// clause keeps re-seeding idempotent: rows that already exist — including
// ones whose is_active or category was edited administratively — are left
// exactly as they are.
func (r *PostgresEndpointRepository) SeedIfAbsent(ctx context.Context, endpoints []policy.Endpoint) error {
	if len(endpoints) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin seed transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO authz_endpoints (
			id, path, method, category, requires_auth, tenant_specific,
			is_active, created_at, updated_at
		) VALUES (
			:id, :path, :method, :category, :requires_auth, :tenant_specific,
			:is_active, :created_at, :updated_at
		)
		ON CONFLICT (path, method) DO NOTHING`

	for _, e := range endpoints {
		if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
			return errx.Wrap(err, "failed to seed endpoint", errx.TypeInternal).
				WithDetail("path", e.Path).
				WithDetail("method", e.Method)
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit endpoint seed", errx.TypeInternal)
	}
	return nil
}

// Save updates an existing endpoint's administrative fields.
func (r *PostgresEndpointRepository) Save(ctx context.Context, endpoint policy.Endpoint) error {
	query := `
		UPDATE authz_endpoints SET
			category = :category,
			requires_auth = :requires_auth,
			tenant_specific = :tenant_specific,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, endpoint)
	if err != nil {
		return errx.Wrap(err, "failed to save endpoint", errx.TypeInternal).
			WithDetail("endpoint_id", endpoint.ID.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on endpoint save", errx.TypeInternal)
	}
	if rows == 0 {
		return policy.ErrEndpointNotFound().WithDetail("endpoint_id", endpoint.ID.String())
	}
	return nil
}

// Delete removes an endpoint; its grants go with it via the schema's
// ON DELETE CASCADE.
func (r *PostgresEndpointRepository) Delete(ctx context.Context, id kernel.EndpointID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM authz_endpoints WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete endpoint", errx.TypeInternal).
			WithDetail("endpoint_id", id.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on endpoint delete", errx.TypeInternal)
	}
	if rows == 0 {
		return policy.ErrEndpointNotFound().WithDetail("endpoint_id", id.String())
	}
	return nil
}
