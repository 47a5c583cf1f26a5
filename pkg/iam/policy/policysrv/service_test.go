package policysrv_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/policy/policysrv"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

type memEndpoints struct {
	mu    sync.Mutex
	rows  map[string]policy.Endpoint // keyed on path|method
	fail  bool
	lists int
}

func endpointKey(path, method string) string { return path + "|" + method }

func (m *memEndpoints) List(_ context.Context) ([]policy.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("store down")
	}
	m.lists++
	out := make([]policy.Endpoint, 0, len(m.rows))
	for _, e := range m.rows {
		out = append(out, e)
	}
	return out, nil
}

func (m *memEndpoints) FindByPathMethod(_ context.Context, path, method string) (*policy.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[endpointKey(path, method)]; ok {
		return &e, nil
	}
	return nil, policy.ErrEndpointNotFound()
}

func (m *memEndpoints) SeedIfAbsent(_ context.Context, endpoints []policy.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = make(map[string]policy.Endpoint)
	}
	for _, e := range endpoints {
		k := endpointKey(e.Path, e.Method)
		if _, exists := m.rows[k]; !exists {
			m.rows[k] = e
		}
	}
	return nil
}

func (m *memEndpoints) Save(_ context.Context, e policy.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[endpointKey(e.Path, e.Method)] = e
	return nil
}

func (m *memEndpoints) Delete(_ context.Context, id kernel.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.rows {
		if e.ID == id {
			delete(m.rows, k)
			return nil
		}
	}
	return policy.ErrEndpointNotFound()
}

type memGrants struct {
	mu   sync.Mutex
	rows map[string]policy.RoleGrant // keyed on role|endpointID
	fail bool
}

func grantKey(r role.Role, id kernel.EndpointID) string { return r.String() + "|" + id.String() }

func (m *memGrants) List(_ context.Context) ([]policy.RoleGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("store down")
	}
	out := make([]policy.RoleGrant, 0, len(m.rows))
	for _, g := range m.rows {
		out = append(out, g)
	}
	return out, nil
}

func (m *memGrants) Find(_ context.Context, r role.Role, id kernel.EndpointID) (*policy.RoleGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.rows[grantKey(r, id)]; ok {
		return &g, nil
	}
	return nil, policy.ErrGrantNotFound()
}

func (m *memGrants) Upsert(_ context.Context, g policy.RoleGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = make(map[string]policy.RoleGrant)
	}
	m.rows[grantKey(g.Role, g.EndpointID)] = g
	return nil
}

func (m *memGrants) Deactivate(_ context.Context, r role.Role, id kernel.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[grantKey(r, id)]
	if !ok {
		return policy.ErrGrantNotFound()
	}
	g.IsActive = false
	m.rows[grantKey(r, id)] = g
	return nil
}

func (m *memGrants) BulkUpsert(ctx context.Context, grants []policy.RoleGrant) error {
	for _, g := range grants {
		if err := m.Upsert(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func fixture() (*memEndpoints, *memGrants, *policysrv.Matrix) {
	endpoints := &memEndpoints{rows: map[string]policy.Endpoint{}}
	grants := &memGrants{rows: map[string]policy.RoleGrant{}}
	_ = endpoints.SeedIfAbsent(context.Background(), []policy.Endpoint{
		{
			ID: kernel.NewEndpointID("ep-admin"), Path: "/api/v1/platform/tenants/:id", Method: "GET",
			Category: policy.CategoryPlatformAdmin, RequiresAuth: true, IsActive: true,
		},
		{
			ID: kernel.NewEndpointID("ep-public"), Path: "/api/v1/catalog", Method: "GET",
			Category: policy.CategoryPublic, RequiresAuth: false, IsActive: true,
		},
		{
			ID: kernel.NewEndpointID("ep-dark"), Path: "/api/v1/legacy", Method: "GET",
			Category: policy.CategoryProfile, RequiresAuth: true, IsActive: false,
		},
	})
	_ = grants.Upsert(context.Background(), policy.NewRoleGrant(
		role.SupportAgent, kernel.NewEndpointID("ep-admin"), true, false, false))
	return endpoints, grants, policysrv.NewMatrix(endpoints, grants, nil)
}

func TestCheck_UnregisteredPathDenies(t *testing.T) {
	_, _, m := fixture()
	for _, r := range append(role.Known, role.Role("")) {
		if m.Check(context.Background(), r, "/api/v1/unknown", "GET") {
			t.Fatalf("unregistered path must deny for role %q", r)
		}
	}
}

func TestCheck_PublicEndpointAllowsEveryRole(t *testing.T) {
	_, _, m := fixture()
	for _, r := range append(role.Known, role.Role("")) {
		if !m.Check(context.Background(), r, "/api/v1/catalog", "GET") {
			t.Fatalf("public endpoint must allow role %q", r)
		}
	}
}

func TestCheck_GrantDecides(t *testing.T) {
	_, _, m := fixture()

	if !m.Check(context.Background(), role.SupportAgent, "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("granted role must be allowed")
	}
	if m.Check(context.Background(), role.ContentManager, "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("ungranted role must be denied")
	}
	if m.Check(context.Background(), "", "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("empty role must be denied on protected endpoint")
	}
}

func TestCheck_InactiveEndpointDenies(t *testing.T) {
	_, _, m := fixture()
	if m.Check(context.Background(), role.SuperAdmin, "/api/v1/legacy", "GET") {
		t.Fatal("inactive endpoint must deny")
	}
}

func TestCheck_StoreFailureFailsClosed(t *testing.T) {
	endpoints := &memEndpoints{fail: true}
	grants := &memGrants{}
	m := policysrv.NewMatrix(endpoints, grants, nil)

	if m.Check(context.Background(), role.SuperAdmin, "/api/v1/catalog", "GET") {
		t.Fatal("unloadable snapshot must deny")
	}
}

func TestCheck_ReadsSnapshotNotStore(t *testing.T) {
	endpoints, _, m := fixture()

	// Warm the snapshot, then hammer Check; the store must not be hit again.
	if !m.Check(context.Background(), role.SupportAgent, "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("warmup check failed")
	}
	endpoints.mu.Lock()
	listsAfterWarmup := endpoints.lists
	endpoints.mu.Unlock()

	for i := 0; i < 100; i++ {
		m.Check(context.Background(), role.SupportAgent, "/api/v1/platform/tenants/t-7", "GET")
	}

	endpoints.mu.Lock()
	defer endpoints.mu.Unlock()
	if endpoints.lists != listsAfterWarmup {
		t.Fatalf("hot path queried the store: %d lists after warmup had %d", endpoints.lists, listsAfterWarmup)
	}
}

func TestGrantAndRevokeRefreshSnapshot(t *testing.T) {
	_, _, m := fixture()
	ctx := context.Background()

	if m.Check(ctx, role.ContentManager, "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("precondition: contentManager has no grant")
	}

	if err := m.Grant(ctx, role.ContentManager, kernel.NewEndpointID("ep-admin"), true, false, false); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !m.Check(ctx, role.ContentManager, "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("grant must take effect without restart")
	}

	if err := m.Revoke(ctx, role.ContentManager, kernel.NewEndpointID("ep-admin")); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if m.Check(ctx, role.ContentManager, "/api/v1/platform/tenants/t-7", "GET") {
		t.Fatal("revoke must take effect without restart")
	}
}

func TestSeedEndpointsPreservesEdits(t *testing.T) {
	endpoints, _, m := fixture()
	ctx := context.Background()

	// An administrator turned /api/v1/legacy off; re-seeding with the route
	// table's default (active) must not resurrect it.
	seed := []policy.Endpoint{
		{
			ID: kernel.NewEndpointID("ep-dark-new"), Path: "/api/v1/legacy", Method: "GET",
			Category: policy.CategoryProfile, RequiresAuth: true, IsActive: true,
		},
		{
			ID: kernel.NewEndpointID("ep-new"), Path: "/api/v1/orders", Method: "POST",
			Category: policy.CategoryOrders, RequiresAuth: true, TenantSpecific: true, IsActive: true,
		},
	}
	if err := m.SeedEndpoints(ctx, seed); err != nil {
		t.Fatalf("SeedEndpoints: %v", err)
	}

	kept, err := endpoints.FindByPathMethod(ctx, "/api/v1/legacy", "GET")
	if err != nil {
		t.Fatalf("FindByPathMethod: %v", err)
	}
	if kept.IsActive || kept.ID != kernel.NewEndpointID("ep-dark") {
		t.Fatalf("re-seed clobbered an edited row: %+v", kept)
	}
	if _, err := endpoints.FindByPathMethod(ctx, "/api/v1/orders", "POST"); err != nil {
		t.Fatalf("new endpoint not seeded: %v", err)
	}
}

func TestSeedDefaultGrants(t *testing.T) {
	_, grants, m := fixture()
	ctx := context.Background()

	if err := m.SeedDefaultGrants(ctx); err != nil {
		t.Fatalf("SeedDefaultGrants: %v", err)
	}

	// Every role gets a grant on the protected active endpoint, with flags
	// from its preset. Public and inactive endpoints get nothing new.
	g, err := grants.Find(ctx, role.ContentManager, kernel.NewEndpointID("ep-admin"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !g.CanRead || g.CanWrite || g.CanDelete {
		t.Fatalf("contentManager preset is read-only, got %+v", g)
	}

	g, err = grants.Find(ctx, role.SuperAdmin, kernel.NewEndpointID("ep-admin"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !g.CanRead || !g.CanWrite || !g.CanDelete {
		t.Fatalf("superAdmin preset is full, got %+v", g)
	}

	if _, err := grants.Find(ctx, role.SuperAdmin, kernel.NewEndpointID("ep-public")); err == nil {
		t.Fatal("public endpoint must not receive default grants")
	}
	if _, err := grants.Find(ctx, role.SuperAdmin, kernel.NewEndpointID("ep-dark")); err == nil {
		t.Fatal("inactive endpoint must not receive default grants")
	}
}

func TestMatrixView(t *testing.T) {
	_, _, m := fixture()

	view, err := m.MatrixView(context.Background())
	if err != nil {
		t.Fatalf("MatrixView: %v", err)
	}
	if len(view) != 3 {
		t.Fatalf("expected 3 endpoints in view, got %d", len(view))
	}
	for _, row := range view {
		if row.Endpoint.ID == kernel.NewEndpointID("ep-admin") {
			if _, ok := row.Grants[role.SupportAgent]; !ok {
				t.Fatal("view must include the supportAgent grant")
			}
			return
		}
	}
	t.Fatal("ep-admin missing from view")
}
