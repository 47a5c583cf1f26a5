package policy

import (
	"time"

	"github.com/google/uuid"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/kernel"
)

// RoleGrant links a role to an endpoint. The allow/deny decision only looks
// at existence of an active grant; the read/write/delete flags describe the
// grant for administrative views and do not gate requests.
type RoleGrant struct {
	ID         string            `db:"id" json:"id"`
	Role       role.Role         `db:"role" json:"role"`
	EndpointID kernel.EndpointID `db:"endpoint_id" json:"endpoint_id"`
	CanRead    bool              `db:"can_read" json:"can_read"`
	CanWrite   bool              `db:"can_write" json:"can_write"`
	CanDelete  bool              `db:"can_delete" json:"can_delete"`
	IsActive   bool              `db:"is_active" json:"is_active"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// NewRoleGrant builds an active grant with a fresh id.
func NewRoleGrant(r role.Role, endpointID kernel.EndpointID, canRead, canWrite, canDelete bool) RoleGrant {
	now := time.Now().UTC()
	return RoleGrant{
		ID:         uuid.New().String(),
		Role:       r,
		EndpointID: endpointID,
		CanRead:    canRead,
		CanWrite:   canWrite,
		CanDelete:  canDelete,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Preset is a bulk-seeding permission profile for a role family.
type Preset string

const (
	// PresetFull grants read, write and delete.
	PresetFull Preset = "full"

	// PresetReadWrite grants read and write but not delete.
	PresetReadWrite Preset = "read_write"

	// PresetReadOnly grants read only.
	PresetReadOnly Preset = "read_only"
)

// Flags returns the (canRead, canWrite, canDelete) triple for the preset.
func (p Preset) Flags() (bool, bool, bool) {
	switch p {
	case PresetFull:
		return true, true, true
	case PresetReadWrite:
		return true, true, false
	case PresetReadOnly:
		return true, false, false
	default:
		return false, false, false
	}
}

// DefaultPresets maps each platform role to its seeding profile.
var DefaultPresets = map[role.Role]Preset{
	role.SuperAdmin:     PresetFull,
	role.PlatformAdmin:  PresetFull,
	role.SupportAgent:   PresetReadWrite,
	role.ContentManager: PresetReadOnly,
}
