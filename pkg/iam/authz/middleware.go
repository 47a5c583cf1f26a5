package authz

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vendala/backoffice/pkg/iam"
	"github.com/vendala/backoffice/pkg/iam/policy/policysrv"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/iam/tenant"
	"github.com/vendala/backoffice/pkg/iam/token"
	"github.com/vendala/backoffice/pkg/kernel"
	"github.com/vendala/backoffice/pkg/logx"
)

// Middleware runs the authorization pipeline for one route. Decision order:
// resolve tenant (always) → public short-circuit → verify token → extract
// roles → ownership check → tenant/platform boundary rules → static required
// roles → dynamic matrix → default allow for role-less principals.
type Middleware struct {
	resolver  *tenant.Resolver
	verifier  *token.Verifier
	extractor *role.Extractor
	matrix    *policysrv.Matrix
}

// NewMiddleware builds the authorization middleware.
func NewMiddleware(resolver *tenant.Resolver, verifier *token.Verifier, extractor *role.Extractor, matrix *policysrv.Matrix) *Middleware {
	return &Middleware{
		resolver:  resolver,
		verifier:  verifier,
		extractor: extractor,
		matrix:    matrix,
	}
}

// Authorize returns the fiber handler enforcing rt's requirements.
func (m *Middleware) Authorize(rt Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		// Tenant resolution runs on every request, public included, so
		// handlers always find a context in locals.
		tctx, resolved, err := m.resolver.Resolve(ctx, tenant.ResolveInput{
			Path:         c.Path(),
			Host:         c.Hostname(),
			PlatformUser: c.Get("x-platform-user") == "true",
			MetadataID:   c.Get("x-tenant-id"),
			QuerySlug:    c.Query("tenant"),
		})
		if err != nil {
			return err
		}
		c.Locals(string(kernel.TenantContextKey), tctx)

		if rt.Public {
			return c.Next()
		}

		claims, err := m.verifier.Verify(ctx, c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		roles := m.extractor.Extract(claims.Raw)
		m.resolver.MarkOwnership(tctx, resolved, claims.Subject)

		c.Locals(string(kernel.PrincipalKey), &kernel.Principal{
			Subject:           claims.Subject,
			Email:             claims.Email,
			PreferredUsername: claims.PreferredUsername,
			Roles:             roles.Strings(),
		})

		// A tenant-restricted route needs either a validated tenant
		// principal or a platform role; a caller with neither is
		// effectively anonymous here, whether the tenant context resolved
		// to a mismatched owner or never resolved at all.
		if rt.tenantRestricted() && roles.IsEmpty() && !tctx.IsValidTenantUser {
			logx.WithFields(logx.Fields{
				"path":    rt.Path,
				"subject": claims.Subject.String(),
			}).Warn("authz: unvalidated tenant principal on tenant route")
			return iam.ErrUnauthorized()
		}

		// Tenant principals never reach the platform-admin surface.
		if rt.Category.IsPlatformAdmin() && m.isTenantPrincipal(tctx, roles) {
			logx.WithFields(logx.Fields{
				"path":    rt.Path,
				"subject": claims.Subject.String(),
			}).Warn("authz: tenant principal denied on platform-admin route")
			return iam.ErrForbidden()
		}

		if len(rt.RequiredRoles) > 0 {
			if roles.Intersects(rt.RequiredRoles) {
				return c.Next()
			}
			return iam.ErrForbidden()
		}

		if !roles.IsEmpty() {
			for _, r := range roles.Values() {
				if m.matrix.Check(ctx, r, c.Path(), c.Method()) {
					return c.Next()
				}
			}
			return iam.ErrForbidden()
		}

		// Authenticated, no recognized role, no explicit requirement: the
		// route is open to any verified principal.
		return c.Next()
	}
}

func (m *Middleware) isTenantPrincipal(tctx *kernel.TenantContext, roles role.Set) bool {
	if tctx == nil {
		return false
	}
	return tctx.IsValidTenantUser || (!tctx.IsEmpty() && roles.IsEmpty())
}

// PrincipalFromCtx returns the verified principal a handler runs behind, or
// nil on public routes.
func PrincipalFromCtx(c *fiber.Ctx) *kernel.Principal {
	p, _ := c.Locals(string(kernel.PrincipalKey)).(*kernel.Principal)
	return p
}

// TenantFromCtx returns the resolved tenant context. Never nil once the
// middleware has run.
func TenantFromCtx(c *fiber.Ctx) *kernel.TenantContext {
	tc, _ := c.Locals(string(kernel.TenantContextKey)).(*kernel.TenantContext)
	return tc
}
