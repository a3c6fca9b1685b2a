package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantStatus is the lifecycle status of a tenant. Tenants are never hard
// deleted by this service; retention runs elsewhere and only ever sees
// tenants that already transitioned out of "active".
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantInactive  TenantStatus = "inactive"
	TenantSuspended TenantStatus = "suspended"
)

// Servable reports whether the tenant may receive inbound calls
func (s TenantStatus) Servable() bool {
	return s == TenantActive
}

// Tenant represents a customer organization owning an isolated partition of
// all shared data. Every tenant-scoped table carries a tenant_id column
// referencing this record.
type Tenant struct {
	ID       string       `json:"id" gorm:"type:uuid;primaryKey"`
	Name     string       `json:"name" gorm:"type:varchar(100);not null"`
	Timezone string       `json:"timezone" gorm:"type:varchar(64);default:'America/Toronto'"`
	Industry string       `json:"industry" gorm:"type:varchar(100)"`
	Status   TenantStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`

	// Comma-separated list of addresses notified about calls and escalations
	DefaultEmailRecipients string `json:"default_email_recipients" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate hook will be called before creating a new Tenant record
func (t *Tenant) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TenantActive
	}
	return nil
}

// TenantUpdate carries the mutable tenant profile fields. Nil fields are
// left unchanged.
type TenantUpdate struct {
	Name                   *string `json:"name,omitempty"`
	Timezone               *string `json:"timezone,omitempty"`
	Industry               *string `json:"industry,omitempty"`
	DefaultEmailRecipients *string `json:"default_email_recipients,omitempty"`
	Status                 *TenantStatus
}
