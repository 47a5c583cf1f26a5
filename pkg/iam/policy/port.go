package policy

import (
	"context"

	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

// EndpointRepository persists the endpoint registry.
type EndpointRepository interface {
	List(ctx context.Context) ([]Endpoint, error)
	FindByPathMethod(ctx context.Context, path, method string) (*Endpoint, error)

	// SeedIfAbsent inserts endpoints that are not yet registered, keyed on
	// (path, method). Already-present rows are left untouched so
	// administrative edits to IsActive or Category survive re-seeding.
	SeedIfAbsent(ctx context.Context, endpoints []Endpoint) error

	Save(ctx context.Context, endpoint Endpoint) error
	Delete(ctx context.Context, id kernel.EndpointID) error
}

// GrantRepository persists role grants. Grants cascade-delete with their
// endpoint at the schema level.
type GrantRepository interface {
	List(ctx context.Context) ([]RoleGrant, error)
	Find(ctx context.Context, r role.Role, endpointID kernel.EndpointID) (*RoleGrant, error)

	// Upsert inserts the grant or, when (role, endpoint_id) already exists,
	// updates its flags and reactivates it.
	Upsert(ctx context.Context, grant RoleGrant) error

	Deactivate(ctx context.Context, r role.Role, endpointID kernel.EndpointID) error
	BulkUpsert(ctx context.Context, grants []RoleGrant) error
}
