// Package authz orchestrates the per-request authorization decision. Routes
// are declared in an explicit table at startup; the same table registers the
// fiber handlers and seeds the endpoint registry, so the two can never
// drift apart.
package authz

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

// Route is one entry of the startup route table.
type Route struct {
	Method string
	Path   string

	// Category groups the route for policy administration and drives the
	// platform-admin restriction.
	Category policy.Category

	// Public routes skip authentication entirely; tenant resolution still
	// runs so handlers see a context.
	Public bool

	// RequiredRoles, when non-empty, is a static requirement checked before
	// the dynamic matrix: the caller must hold at least one of them.
	RequiredRoles []role.Role

	// TenantSpecific marks a route as serving tenant-owned data when its
	// category alone does not say so. Such routes expect either a validated
	// tenant principal or a platform role.
	TenantSpecific bool

	Handler fiber.Handler
}

// tenantRestricted reports whether the route serves tenant-owned data, via
// its category or the per-route flag. The restriction is keyed on the
// category first so a missing flag cannot open a support or billing route.
func (rt Route) tenantRestricted() bool {
	return rt.TenantSpecific || rt.Category.IsTenantRestricted()
}

// Endpoints converts the route table into registry seed rows.
func Endpoints(routes []Route) []policy.Endpoint {
	now := time.Now().UTC()
	out := make([]policy.Endpoint, 0, len(routes))
	for _, rt := range routes {
		out = append(out, policy.Endpoint{
			ID:             kernel.NewEndpointID(uuid.New().String()),
			Path:           rt.Path,
			Method:         rt.Method,
			Category:       rt.Category,
			RequiresAuth:   !rt.Public,
			TenantSpecific: rt.tenantRestricted(),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return out
}

// Register wires every route into the fiber app behind the authorization
// middleware.
func Register(app *fiber.App, routes []Route, mw *Middleware) {
	for _, rt := range routes {
		app.Add(rt.Method, rt.Path, mw.Authorize(rt), rt.Handler)
	}
}
