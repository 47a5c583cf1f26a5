package kernel

// ============================================================================
// Request-scoped context types
// ============================================================================

// TenantStatus is the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusDeleted   TenantStatus = "DELETED"
)

// TenantContext is attached to every request exactly once by the tenant
// resolver. An empty context is valid: platform users and public requests
// carry no tenant membership.
type TenantContext struct {
	TenantID         TenantID     `json:"tenant_id"`
	TenantMetadataID string       `json:"tenant_metadata_id"`
	Status           TenantStatus `json:"status"`

	// IsValidTenantUser is true only when the verified principal's subject
	// is linked to the resolved tenant's owner record. False for platform
	// users and unauthenticated requests.
	IsValidTenantUser bool `json:"is_valid_tenant_user"`

	// IsPlatformUser is set when the request carried the platform-user flag.
	IsPlatformUser bool `json:"is_platform_user"`
}

// IsEmpty reports whether no tenant was resolved
func (tc *TenantContext) IsEmpty() bool {
	return tc == nil || tc.TenantID.IsEmpty()
}

// Principal is the authenticated actor on a request, built from verified
// token claims. Request-scoped; never shared across requests.
type Principal struct {
	Subject           SubjectID `json:"subject"`
	Email             string    `json:"email"`
	PreferredUsername string    `json:"preferred_username"`
	Roles             []string  `json:"roles"`
}

// HasRole reports whether the principal holds the given role name
func (p *Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// ============================================================================
// Context keys
// ============================================================================

type ContextKey string

const (
	// PrincipalKey stores the *Principal on the request
	PrincipalKey ContextKey = "principal"

	// TenantContextKey stores the *TenantContext on the request
	TenantContextKey ContextKey = "tenant_context"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)
