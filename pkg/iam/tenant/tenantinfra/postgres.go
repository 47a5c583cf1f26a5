package tenantinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam/tenant"
)

// PostgresTenantRepository is the PostgreSQL implementation of
// tenant.Repository. Read-only: the tenants table is written by the
// business CRUD, this layer only resolves requests against it.
type PostgresTenantRepository struct {
	db *sqlx.DB
}

// NewPostgresTenantRepository creates a new repository instance.
func NewPostgresTenantRepository(db *sqlx.DB) tenant.Repository {
	return &PostgresTenantRepository{
		db: db,
	}
}

const tenantColumns = `id, metadata_id, slug, name, owner_subject, owner_email, status, created_at, updated_at`

// FindByMetadataID looks a tenant up by its external metadata id.
func (r *PostgresTenantRepository) FindByMetadataID(ctx context.Context, metadataID string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE metadata_id = $1`
	err := r.db.GetContext(ctx, &t, query, metadataID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound().WithDetail("metadata_id", metadataID)
		}
		return nil, errx.Wrap(err, "failed to find tenant by metadata id", errx.TypeInternal)
	}
	return &t, nil
}

// FindBySlug looks a tenant up by its URL slug.
func (r *PostgresTenantRepository) FindBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	err := r.db.GetContext(ctx, &t, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound().WithDetail("slug", slug)
		}
		return nil, errx.Wrap(err, "failed to find tenant by slug", errx.TypeInternal)
	}
	return &t, nil
}

// FindByOwnerEmail looks a tenant up by its owner's email address.
func (r *PostgresTenantRepository) FindByOwnerEmail(ctx context.Context, email string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE owner_email = $1`
	err := r.db.GetContext(ctx, &t, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound().WithDetail("owner_email", email)
		}
		return nil, errx.Wrap(err, "failed to find tenant by owner email", errx.TypeInternal)
	}
	return &t, nil
}
