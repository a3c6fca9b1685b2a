package model

import (
	"time"
)

// PhoneRoute maps a normalized E.164 destination number to the tenant that
// owns it. At most one active route may exist per number; the partial unique
// index on (phone_number) WHERE active is the serialization point, so
// reassignment requires deactivating the previous route first. Deactivated
// routes are kept for call-history attribution.
type PhoneRoute struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Number   string `json:"phone_number" gorm:"column:phone_number;type:varchar(20);not null;index"`
	TenantID string `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Active   bool   `json:"active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
