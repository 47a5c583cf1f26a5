// Package iam is the authorization core of the backoffice: signing-key
// discovery, bearer-token verification, role extraction, tenant resolution,
// and the data-driven permission matrix consulted on every protected request.
//
// Sub-packages:
//
//   - iam/keyset   — identity-provider signing keys (fetch, cache, bootstrap)
//   - iam/token    — bearer-token verification into normalized claims
//   - iam/role     — platform roles and claim-shape extraction strategies
//   - iam/tenant   — tenant domain and per-request tenant resolution
//   - iam/policy   — endpoint registry and role-grant permission matrix
//   - iam/authz    — the per-request authorization decision middleware
//
// The pipeline per request: tenant resolution (always) → public short-circuit
// → token verification → role extraction → ownership validation → decision
// against the route table and permission matrix. Missing policy data and
// dependency failures always deny (fail closed).
package iam

import (
	"net/http"

	"github.com/vendala/backoffice/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeUnauthorized = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Unauthorized")
	CodeForbidden    = ErrRegistry.Register("FORBIDDEN", errx.TypePermission, http.StatusForbidden, "Access denied")
)

// ErrUnauthorized is the single outcome every verification failure collapses
// to. Which check failed is logged server-side, never returned to the caller.
func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

func ErrForbidden() *errx.Error {
	return ErrRegistry.New(CodeForbidden)
}
