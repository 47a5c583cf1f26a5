package tenant

import "context"

// Repository is the tenant lookup contract this layer consumes. The backing
// store is owned by the business CRUD; this layer only reads the fields on
// Tenant and writes nothing.
type Repository interface {
	FindByMetadataID(ctx context.Context, metadataID string) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindByOwnerEmail(ctx context.Context, email string) (*Tenant, error)
}
