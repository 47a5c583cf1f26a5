package tenant

import (
	"context"
	"net"
	"strings"

	"github.com/vendala/backoffice/pkg/kernel"
	"github.com/vendala/backoffice/pkg/logx"
)

// ResolveInput carries the request signals tenant resolution reads. The HTTP
// adapter builds one per request; the resolver itself has no framework
// dependency.
type ResolveInput struct {
	Path string
	Host string

	// PlatformUser is the x-platform-user flag.
	PlatformUser bool

	// MetadataID is the explicit x-tenant-id header value.
	MetadataID string

	// QuerySlug is the legacy ?tenant= fallback.
	QuerySlug string
}

// Resolver determines the tenant context for a request from overlapping,
// partly legacy signals. It always attaches a context — possibly empty — and
// fails only on malformed or unserveable explicit input.
type Resolver struct {
	repo           Repository
	selfHostnames  map[string]struct{}
	baseDomain     string
	bypassPrefixes []string
}

// NewResolver builds a resolver. bypassPrefixes are path prefixes that skip
// resolution entirely (health, well-known, static assets).
func NewResolver(repo Repository, selfHostnames []string, baseDomain string, bypassPrefixes []string) *Resolver {
	self := make(map[string]struct{}, len(selfHostnames))
	for _, h := range selfHostnames {
		self[strings.ToLower(h)] = struct{}{}
	}
	return &Resolver{
		repo:           repo,
		selfHostnames:  self,
		baseDomain:     strings.ToLower(baseDomain),
		bypassPrefixes: bypassPrefixes,
	}
}

// Resolve returns the tenant context for the request plus the resolved tenant
// record (nil when the context is empty). Precedence, first match wins:
// platform-user flag → explicit metadata id → legacy slug (subdomain, then
// query) → empty.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*kernel.TenantContext, *Tenant, error) {
	if r.bypassed(in) {
		return &kernel.TenantContext{}, nil, nil
	}

	if in.PlatformUser {
		// Platform users carry no tenant membership regardless of any
		// other signal on the request.
		return &kernel.TenantContext{IsPlatformUser: true}, nil, nil
	}

	if id := strings.TrimSpace(in.MetadataID); id != "" {
		return r.resolveByMetadataID(ctx, id)
	}

	if slug := r.legacySlug(in); slug != "" {
		return r.resolveBySlug(ctx, slug)
	}

	return &kernel.TenantContext{}, nil, nil
}

// MarkOwnership links the resolved tenant to the verified principal. Runs
// after token verification; before that no subject exists to compare.
func (r *Resolver) MarkOwnership(tctx *kernel.TenantContext, resolved *Tenant, subject kernel.SubjectID) {
	if tctx == nil || tctx.IsEmpty() || resolved == nil {
		return
	}
	tctx.IsValidTenantUser = resolved.OwnedBy(subject)
	if !tctx.IsValidTenantUser {
		logx.WithFields(logx.Fields{
			"tenant_id": resolved.ID.String(),
			"subject":   subject.String(),
		}).Debug("tenant: principal is not the tenant owner")
	}
}

func (r *Resolver) bypassed(in ResolveInput) bool {
	for _, prefix := range r.bypassPrefixes {
		if strings.HasPrefix(in.Path, prefix) {
			return true
		}
	}
	if _, ok := r.selfHostnames[strings.ToLower(stripPort(in.Host))]; ok {
		// The service is calling itself; no tenant to resolve.
		return true
	}
	return false
}

func (r *Resolver) resolveByMetadataID(ctx context.Context, metadataID string) (*kernel.TenantContext, *Tenant, error) {
	t, err := r.repo.FindByMetadataID(ctx, metadataID)
	if err != nil {
		logx.WithField("metadata_id", metadataID).Debug("tenant: metadata id lookup failed")
		return nil, nil, ErrTenantNotFound().WithDetail("metadata_id", metadataID)
	}
	return r.contextFor(t)
}

func (r *Resolver) resolveBySlug(ctx context.Context, slug string) (*kernel.TenantContext, *Tenant, error) {
	t, err := r.repo.FindBySlug(ctx, slug)
	if err != nil {
		logx.WithField("slug", slug).Debug("tenant: slug lookup failed")
		return nil, nil, ErrTenantNotFound().WithDetail("slug", slug)
	}
	return r.contextFor(t)
}

func (r *Resolver) contextFor(t *Tenant) (*kernel.TenantContext, *Tenant, error) {
	if !t.IsActive() {
		return nil, nil, ErrTenantInactive().WithDetail("status", string(t.Status))
	}
	return &kernel.TenantContext{
		TenantID:         t.ID,
		TenantMetadataID: t.MetadataID,
		Status:           t.Status,
	}, t, nil
}

// legacySlug extracts the tenant slug from the subdomain, falling back to the
// ?tenant= query parameter.
func (r *Resolver) legacySlug(in ResolveInput) string {
	host := strings.ToLower(stripPort(in.Host))
	if r.baseDomain != "" && strings.HasSuffix(host, "."+r.baseDomain) {
		sub := strings.TrimSuffix(host, "."+r.baseDomain)
		if sub != "" && !strings.Contains(sub, ".") {
			return sub
		}
	}
	return strings.TrimSpace(in.QuerySlug)
}

func stripPort(host string) string {
	if strings.Contains(host, ":") {
		if h, _, err := net.SplitHostPort(host); err == nil {
			return h
		}
	}
	return host
}
