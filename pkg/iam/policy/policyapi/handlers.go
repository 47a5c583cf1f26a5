package policyapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vendala/backoffice/pkg/iam/authz"
	"github.com/vendala/backoffice/pkg/iam/policy"
	"github.com/vendala/backoffice/pkg/iam/policy/policysrv"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

// Handlers is the administrative surface of the permission matrix.
type Handlers struct {
	matrix *policysrv.Matrix
}

// NewHandlers creates the handler set.
func NewHandlers(matrix *policysrv.Matrix) *Handlers {
	return &Handlers{
		matrix: matrix,
	}
}

// Routes returns the administrative routes. They go into the same route
// table as everything else, scoped to platform administrators.
func (h *Handlers) Routes() []authz.Route {
	admin := []role.Role{role.SuperAdmin, role.PlatformAdmin}
	return []authz.Route{
		{Method: fiber.MethodGet, Path: "/api/v1/authz/matrix", Category: policy.CategoryPlatformAdmin, RequiredRoles: admin, Handler: h.GetMatrix},
		{Method: fiber.MethodPost, Path: "/api/v1/authz/grants", Category: policy.CategoryPlatformAdmin, RequiredRoles: admin, Handler: h.CreateGrant},
		{Method: fiber.MethodDelete, Path: "/api/v1/authz/grants", Category: policy.CategoryPlatformAdmin, RequiredRoles: admin, Handler: h.RevokeGrant},
		{Method: fiber.MethodPost, Path: "/api/v1/authz/grants/seed", Category: policy.CategoryPlatformAdmin, RequiredRoles: []role.Role{role.SuperAdmin}, Handler: h.SeedDefaultGrants},
	}
}

// GetMatrix returns the endpoint-by-role grid.
func (h *Handlers) GetMatrix(c *fiber.Ctx) error {
	view, err := h.matrix.MatrixView(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"matrix": view})
}

type grantRequest struct {
	Role       string `json:"role"`
	EndpointID string `json:"endpoint_id"`
	CanRead    bool   `json:"can_read"`
	CanWrite   bool   `json:"can_write"`
	CanDelete  bool   `json:"can_delete"`
}

// CreateGrant upserts an active grant for (role, endpoint).
func (h *Handlers) CreateGrant(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return policy.ErrInvalidGrant().WithDetail("reason", "malformed body")
	}
	r, ok := role.Parse(req.Role)
	if !ok {
		return policy.ErrInvalidGrant().WithDetail("role", req.Role)
	}
	if req.EndpointID == "" {
		return policy.ErrInvalidGrant().WithDetail("reason", "endpoint_id is required")
	}

	err := h.matrix.Grant(c.UserContext(), r, kernel.NewEndpointID(req.EndpointID),
		req.CanRead, req.CanWrite, req.CanDelete)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "granted"})
}

type revokeRequest struct {
	Role       string `json:"role"`
	EndpointID string `json:"endpoint_id"`
}

// RevokeGrant deactivates the grant for (role, endpoint).
func (h *Handlers) RevokeGrant(c *fiber.Ctx) error {
	var req revokeRequest
	if err := c.BodyParser(&req); err != nil {
		return policy.ErrInvalidGrant().WithDetail("reason", "malformed body")
	}
	r, ok := role.Parse(req.Role)
	if !ok {
		return policy.ErrInvalidGrant().WithDetail("role", req.Role)
	}

	if err := h.matrix.Revoke(c.UserContext(), r, kernel.NewEndpointID(req.EndpointID)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "revoked"})
}

// SeedDefaultGrants bulk-applies the per-role presets.
func (h *Handlers) SeedDefaultGrants(c *fiber.Ctx) error {
	if err := h.matrix.SeedDefaultGrants(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "seeded"})
}
