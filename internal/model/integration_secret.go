package model

import (
	"time"
)

// IntegrationSecret stores the sealed credential blob for one third-party
// integration of one tenant. The unique index on (tenant_id, integration_type)
// guarantees at most one live ciphertext per pair; rotation upserts on that
// index so the previous ciphertext is superseded atomically. The ciphertext
// can only be opened by the vault with the owning tenant id as associated
// data, so a row swapped between tenants at the storage layer is unreadable.
type IntegrationSecret struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	TenantID        string `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_secrets_tenant_type"`
	IntegrationType string `json:"integration_type" gorm:"type:varchar(50);not null;uniqueIndex:idx_secrets_tenant_type"`
	Ciphertext      []byte `json:"-" gorm:"type:bytea;not null"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
