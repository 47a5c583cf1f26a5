package policysrv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
	"github.com/vendala/backoffice/pkg/logx"
)

// InvalidationBus tells peer instances their policy snapshot is stale.
type InvalidationBus interface {
	Broadcast(ctx context.Context) error
}

// Matrix is the runtime permission matrix. The request path reads an
// in-memory snapshot of endpoints and active grants; the store is only
// queried on refresh, never per request. Administrative writes refresh the
// local snapshot and broadcast an invalidation so peers refresh theirs.
type Matrix struct {
	endpoints policy.EndpointRepository
	grants    policy.GrantRepository
	bus       InvalidationBus

	snap atomic.Pointer[snapshot]

	// refreshMu collapses concurrent refreshes into one store round-trip.
	refreshMu sync.Mutex
}

type grantKey struct {
	role       role.Role
	endpointID kernel.EndpointID
}

type snapshot struct {
	endpoints []policy.Endpoint
	active    map[grantKey]struct{}
	grants    []policy.RoleGrant
	loadedAt  time.Time
}

// NewMatrix builds a matrix service. bus may be nil when running a single
// instance.
func NewMatrix(endpoints policy.EndpointRepository, grants policy.GrantRepository, bus InvalidationBus) *Matrix {
	return &Matrix{
		endpoints: endpoints,
		grants:    grants,
		bus:       bus,
	}
}

// Refresh reloads the snapshot from the store. Called at startup, on
// administrative writes, on invalidation messages, and on the periodic
// refresh tick.
func (m *Matrix) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	endpoints, err := m.endpoints.List(ctx)
	if err != nil {
		return err
	}
	grants, err := m.grants.List(ctx)
	if err != nil {
		return err
	}

	active := make(map[grantKey]struct{}, len(grants))
	for _, g := range grants {
		if g.IsActive {
			active[grantKey{role: g.Role, endpointID: g.EndpointID}] = struct{}{}
		}
	}

	m.snap.Store(&snapshot{
		endpoints: endpoints,
		active:    active,
		grants:    grants,
		loadedAt:  time.Now(),
	})
	return nil
}

// Check decides whether the given role may reach (path, method). Fail
// closed: an unloadable snapshot, an unregistered path, and an inactive
// endpoint all deny. An endpoint that does not require auth allows every
// role, including the empty one.
func (m *Matrix) Check(ctx context.Context, r role.Role, path, method string) bool {
	snap := m.snapshot(ctx)
	if snap == nil {
		logx.WithFields(logx.Fields{
			"path":   path,
			"method": method,
		}).Warn("policy: snapshot unavailable, denying")
		return false
	}

	e := snap.match(path, method)
	if e == nil || !e.IsActive {
		return false
	}
	if !e.RequiresAuth {
		return true
	}
	if r == "" {
		return false
	}
	_, ok := snap.active[grantKey{role: r, endpointID: e.ID}]
	return ok
}

// Endpoint resolves the registered endpoint covering (path, method) from the
// snapshot, or nil.
func (m *Matrix) Endpoint(ctx context.Context, path, method string) *policy.Endpoint {
	snap := m.snapshot(ctx)
	if snap == nil {
		return nil
	}
	return snap.match(path, method)
}

func (s *snapshot) match(path, method string) *policy.Endpoint {
	for i := range s.endpoints {
		if s.endpoints[i].Matches(path, method) {
			return &s.endpoints[i]
		}
	}
	return nil
}

// snapshot returns the current snapshot, loading it on first use.
func (m *Matrix) snapshot(ctx context.Context) *snapshot {
	if snap := m.snap.Load(); snap != nil {
		return snap
	}
	if err := m.Refresh(ctx); err != nil {
		logx.WithError(err).Error("policy: initial snapshot load failed")
		return nil
	}
	return m.snap.Load()
}

// Grant upserts an active grant for (role, endpoint) and propagates the
// change.
func (m *Matrix) Grant(ctx context.Context, r role.Role, endpointID kernel.EndpointID, canRead, canWrite, canDelete bool) error {
	g := policy.NewRoleGrant(r, endpointID, canRead, canWrite, canDelete)
	if err := m.grants.Upsert(ctx, g); err != nil {
		return err
	}
	m.propagate(ctx)
	return nil
}

// Revoke deactivates the grant for (role, endpoint) and propagates the
// change.
func (m *Matrix) Revoke(ctx context.Context, r role.Role, endpointID kernel.EndpointID) error {
	if err := m.grants.Deactivate(ctx, r, endpointID); err != nil {
		return err
	}
	m.propagate(ctx)
	return nil
}

// SeedEndpoints registers the route table's endpoints, inserting only the
// ones not yet present.
func (m *Matrix) SeedEndpoints(ctx context.Context, endpoints []policy.Endpoint) error {
	if err := m.endpoints.SeedIfAbsent(ctx, endpoints); err != nil {
		return err
	}
	m.propagate(ctx)
	return nil
}

// SeedDefaultGrants bulk-applies the per-role presets to every active
// endpoint that requires auth. A convenience for bootstrapping a fresh
// environment; never part of the request path.
func (m *Matrix) SeedDefaultGrants(ctx context.Context) error {
	endpoints, err := m.endpoints.List(ctx)
	if err != nil {
		return err
	}

	var grants []policy.RoleGrant
	for _, e := range endpoints {
		if !e.IsActive || !e.RequiresAuth {
			continue
		}
		for _, r := range role.Known {
			preset := policy.DefaultPresets[r]
			canRead, canWrite, canDelete := preset.Flags()
			grants = append(grants, policy.NewRoleGrant(r, e.ID, canRead, canWrite, canDelete))
		}
	}

	if err := m.grants.BulkUpsert(ctx, grants); err != nil {
		return err
	}
	m.propagate(ctx)
	return nil
}

// EndpointGrants is one row of the administrative matrix view.
type EndpointGrants struct {
	Endpoint policy.Endpoint              `json:"endpoint"`
	Grants   map[role.Role]policy.RoleGrant `json:"grants"`
}

// MatrixView returns the endpoint-by-role grid for the administrative API.
// Reads the stores directly so administrators always see committed state.
func (m *Matrix) MatrixView(ctx context.Context) ([]EndpointGrants, error) {
	endpoints, err := m.endpoints.List(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := m.grants.List(ctx)
	if err != nil {
		return nil, err
	}

	byEndpoint := make(map[kernel.EndpointID]map[role.Role]policy.RoleGrant, len(endpoints))
	for _, g := range grants {
		if byEndpoint[g.EndpointID] == nil {
			byEndpoint[g.EndpointID] = make(map[role.Role]policy.RoleGrant)
		}
		byEndpoint[g.EndpointID][g.Role] = g
	}

	view := make([]EndpointGrants, 0, len(endpoints))
	for _, e := range endpoints {
		row := EndpointGrants{Endpoint: e, Grants: byEndpoint[e.ID]}
		if row.Grants == nil {
			row.Grants = make(map[role.Role]policy.RoleGrant)
		}
		view = append(view, row)
	}
	return view, nil
}

// propagate refreshes the local snapshot and tells peers to do the same.
// Both are best-effort: the write already committed, and a stale snapshot
// heals on the next periodic refresh.
func (m *Matrix) propagate(ctx context.Context) {
	if err := m.Refresh(ctx); err != nil {
		logx.WithError(err).Warn("policy: snapshot refresh after write failed")
	}
	if m.bus == nil {
		return
	}
	if err := m.bus.Broadcast(ctx); err != nil {
		logx.WithError(err).Warn("policy: invalidation broadcast failed")
	}
}
