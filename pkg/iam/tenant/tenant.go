package tenant

import (
	"net/http"
	"time"

	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/kernel"
)

// Tenant is the slice of the tenant record this layer reads: identity,
// lookup keys, owner linkage, and lifecycle status. Contact and billing
// profile fields live with the business CRUD, outside this layer.
type Tenant struct {
	ID         kernel.TenantID     `db:"id" json:"id"`
	MetadataID string              `db:"metadata_id" json:"metadata_id"`
	Slug       string              `db:"slug" json:"slug"`
	Name       string              `db:"name" json:"name"`
	// OwnerSubject is the identity-provider subject of the tenant's owner.
	// Ownership validation compares it against the verified token subject.
	OwnerSubject kernel.SubjectID  `db:"owner_subject" json:"owner_subject"`
	OwnerEmail   string            `db:"owner_email" json:"owner_email"`
	Status       kernel.TenantStatus `db:"status" json:"status"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the tenant may be served.
func (t *Tenant) IsActive() bool {
	return t.Status == kernel.TenantStatusActive
}

// OwnedBy reports whether subject is the tenant's owner identity.
func (t *Tenant) OwnedBy(subject kernel.SubjectID) bool {
	return !subject.IsEmpty() && t.OwnerSubject == subject
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("TENANT")

var (
	CodeTenantNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeValidation, http.StatusBadRequest, "Tenant not found")
	CodeTenantInactive = ErrRegistry.Register("INACTIVE", errx.TypeValidation, http.StatusBadRequest, "Tenant is not active")
)

func ErrTenantNotFound() *errx.Error {
	return ErrRegistry.New(CodeTenantNotFound)
}

func ErrTenantInactive() *errx.Error {
	return ErrRegistry.New(CodeTenantInactive)
}
