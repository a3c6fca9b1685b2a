package model

import (
	"time"
)

// AgentPack is a shared read-only agent template not owned by any tenant.
// It is a reference table and deliberately carries no tenant_id column.
type AgentPack struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
	Prompts     string `json:"prompts" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
