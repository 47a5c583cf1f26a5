// cmd/routes.go
//
// The route table. One place declares every route's method, path, category,
// and authorization requirements; the same table registers handlers and
// seeds the endpoint registry, so routing and policy can never drift.
package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vendala/backoffice/pkg/iam/authz"
	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/role"
)

func buildRouteTable(container *Container) []authz.Route {
	routes := []authz.Route{
		// ── Public catalog ───────────────────────────────────────────────
		{Method: fiber.MethodGet, Path: "/api/v1/catalog", Category: policy.CategoryPublic, Public: true, Handler: listCatalog},
		{Method: fiber.MethodGet, Path: "/api/v1/catalog/:id", Category: policy.CategoryPublic, Public: true, Handler: getCatalogItem},

		// ── Platform administration ──────────────────────────────────────
		{Method: fiber.MethodGet, Path: "/api/v1/platform/tenants", Category: policy.CategoryPlatformAdmin, Handler: listTenants},
		{Method: fiber.MethodGet, Path: "/api/v1/platform/tenants/:id", Category: policy.CategoryPlatformAdmin, Handler: getTenant},
		{Method: fiber.MethodPost, Path: "/api/v1/platform/tenants/:id/suspend", Category: policy.CategoryPlatformAdmin,
			RequiredRoles: []role.Role{role.SuperAdmin, role.PlatformAdmin}, Handler: suspendTenant},

		// ── Support ──────────────────────────────────────────────────────
		{Method: fiber.MethodGet, Path: "/api/v1/support/tickets", Category: policy.CategorySupport, TenantSpecific: true, Handler: listTickets},
		{Method: fiber.MethodPost, Path: "/api/v1/support/tickets", Category: policy.CategorySupport, TenantSpecific: true, Handler: createTicket},
		{Method: fiber.MethodGet, Path: "/api/v1/support/tickets/:id", Category: policy.CategorySupport, TenantSpecific: true, Handler: getTicket},

		// ── Billing ──────────────────────────────────────────────────────
		{Method: fiber.MethodGet, Path: "/api/v1/billing/invoices", Category: policy.CategoryBilling, TenantSpecific: true, Handler: listInvoices},
		{Method: fiber.MethodGet, Path: "/api/v1/billing/invoices/:id", Category: policy.CategoryBilling, TenantSpecific: true, Handler: getInvoice},

		// ── Orders ───────────────────────────────────────────────────────
		{Method: fiber.MethodGet, Path: "/api/v1/orders", Category: policy.CategoryOrders, TenantSpecific: true, Handler: listOrders},
		{Method: fiber.MethodGet, Path: "/api/v1/orders/:id", Category: policy.CategoryOrders, TenantSpecific: true, Handler: getOrder},
		{Method: fiber.MethodPost, Path: "/api/v1/orders/:id/refund", Category: policy.CategoryOrders, TenantSpecific: true, Handler: refundOrder},

		// ── Profile ──────────────────────────────────────────────────────
		{Method: fiber.MethodGet, Path: "/api/v1/profile", Category: policy.CategoryProfile, Handler: getProfile},
		{Method: fiber.MethodPut, Path: "/api/v1/profile", Category: policy.CategoryProfile, Handler: updateProfile},
	}

	// The policy administration surface rides the same table.
	routes = append(routes, container.IAM.PolicyHandlers.Routes()...)

	return routes
}

// ============================================================================
// Handlers
//
// Thin for now: the admin frontend consumes these as-is while the richer
// business modules come online one bounded context at a time.
// ============================================================================

func listCatalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": []fiber.Map{}})
}

func getCatalogItem(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id")})
}

func listTenants(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tenants": []fiber.Map{}})
}

func getTenant(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id")})
}

func suspendTenant(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id"), "status": "SUSPENDED"})
}

func listTickets(c *fiber.Ctx) error {
	tctx := authz.TenantFromCtx(c)
	return c.JSON(fiber.Map{"tickets": []fiber.Map{}, "tenant_id": tctx.TenantID})
}

func createTicket(c *fiber.Ctx) error {
	p := authz.PrincipalFromCtx(c)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"opened_by": p.Subject})
}

func getTicket(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id")})
}

func listInvoices(c *fiber.Ctx) error {
	tctx := authz.TenantFromCtx(c)
	return c.JSON(fiber.Map{"invoices": []fiber.Map{}, "tenant_id": tctx.TenantID})
}

func getInvoice(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id")})
}

func listOrders(c *fiber.Ctx) error {
	tctx := authz.TenantFromCtx(c)
	return c.JSON(fiber.Map{"orders": []fiber.Map{}, "tenant_id": tctx.TenantID})
}

func getOrder(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id")})
}

func refundOrder(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"id": c.Params("id"), "status": "refund_requested"})
}

func getProfile(c *fiber.Ctx) error {
	p := authz.PrincipalFromCtx(c)
	return c.JSON(fiber.Map{
		"subject": p.Subject,
		"email":   p.Email,
		"roles":   p.Roles,
	})
}

func updateProfile(c *fiber.Ctx) error {
	p := authz.PrincipalFromCtx(c)
	return c.JSON(fiber.Map{"subject": p.Subject, "status": "updated"})
}
