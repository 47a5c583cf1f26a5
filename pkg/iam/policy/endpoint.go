// Package policy holds the dynamic authorization policy: the catalog of
// protected endpoints and the per-(role, endpoint) grants that decide, at
// request time, whether a held role may reach a route. Endpoints are seeded
// from the route table at startup; grants are administratively managed and
// are the only part of authorization that changes without a deployment.
package policy

import (
	"net/http"
	"strings"
	"time"

	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/kernel"
)

// Category groups endpoints by the surface they belong to.
type Category string

const (
	CategoryPlatformAdmin Category = "platform_admin"
	CategorySupport       Category = "support"
	CategoryBilling       Category = "billing"
	CategoryOrders        Category = "orders"
	CategoryProfile       Category = "profile"
	CategoryPublic        Category = "public"
)

// IsPlatformAdmin reports whether the category is the platform-admin surface,
// which tenant principals may never reach.
func (c Category) IsPlatformAdmin() bool {
	return c == CategoryPlatformAdmin
}

// IsTenantRestricted reports whether every endpoint in the category serves
// tenant-owned data. Routes in these categories demand a validated tenant
// principal or a platform role regardless of per-route flags.
func (c Category) IsTenantRestricted() bool {
	switch c {
	case CategorySupport, CategoryBilling, CategoryOrders:
		return true
	}
	return false
}

// Endpoint is one protected route in the registry. Unique on (Path, Method).
// Rows are created by seeding and edited administratively; IsActive and
// Category edits survive re-seeding.
type Endpoint struct {
	ID             kernel.EndpointID `db:"id" json:"id"`
	Path           string            `db:"path" json:"path"`
	Method         string            `db:"method" json:"method"`
	Category       Category          `db:"category" json:"category"`
	RequiresAuth   bool              `db:"requires_auth" json:"requires_auth"`
	TenantSpecific bool              `db:"tenant_specific" json:"tenant_specific"`
	IsActive       bool              `db:"is_active" json:"is_active"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// Matches reports whether the endpoint covers the concrete request path and
// method. Pattern segments beginning with ':' match any single non-empty
// concrete segment.
func (e *Endpoint) Matches(path, method string) bool {
	if !strings.EqualFold(e.Method, method) {
		return false
	}
	return pathMatches(e.Path, path)
}

func pathMatches(pattern, path string) bool {
	p := splitPath(pattern)
	c := splitPath(path)
	if len(p) != len(c) {
		return false
	}
	for i := range p {
		if strings.HasPrefix(p[i], ":") {
			if c[i] == "" {
				return false
			}
			continue
		}
		if p[i] != c[i] {
			return false
		}
	}
	return true
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("POLICY")

var (
	CodeEndpointNotFound = ErrRegistry.Register("ENDPOINT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Endpoint not found")
	CodeGrantNotFound    = ErrRegistry.Register("GRANT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role grant not found")
	CodeInvalidGrant     = ErrRegistry.Register("INVALID_GRANT", errx.TypeValidation, http.StatusBadRequest, "Invalid role grant")
)

func ErrEndpointNotFound() *errx.Error {
	return ErrRegistry.New(CodeEndpointNotFound)
}

func ErrGrantNotFound() *errx.Error {
	return ErrRegistry.New(CodeGrantNotFound)
}

func ErrInvalidGrant() *errx.Error {
	return ErrRegistry.New(CodeInvalidGrant)
}
