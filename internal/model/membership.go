package model

import (
	"time"
)

// Membership binds a principal to exactly one tenant with a role. The unique
// index on principal_id enforces the single-tenant-per-principal policy at
// the storage layer; the composite index keeps the pair unique even if that
// policy is ever relaxed. Memberships are hard-deleted on removal so the
// indexes stay authoritative.
type Membership struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	PrincipalID string `json:"principal_id" gorm:"type:uuid;not null;uniqueIndex;uniqueIndex:idx_memberships_principal_tenant"`
	TenantID    string `json:"tenant_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_memberships_principal_tenant"`
	Role        Role   `json:"role" gorm:"type:varchar(20);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
