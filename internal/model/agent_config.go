package model

import (
	"time"

	"gorm.io/gorm"
)

// AgentConfig holds the per-tenant configuration of the AI call agent.
// One record per tenant, created with defaults at onboarding.
type AgentConfig struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	TenantID string `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex"`

	Greeting        string `json:"greeting" gorm:"type:text"`
	Tone            string `json:"tone" gorm:"type:varchar(50);default:'professional'"`
	BusinessHours   string `json:"business_hours" gorm:"type:jsonb"`
	EscalationRules string `json:"escalation_rules" gorm:"type:jsonb"`
	AllowedActions  string `json:"allowed_actions" gorm:"type:text"` // Comma-separated list of actions the agent may take
	CustomPrompts   string `json:"custom_prompts" gorm:"type:jsonb"`

	StoreTranscripts bool `json:"store_transcripts" gorm:"default:true"`
	StoreRecordings  bool `json:"store_recordings" gorm:"default:true"`
	RetentionDays    int  `json:"retention_days" gorm:"default:90"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// DefaultAgentConfig returns the agent configuration a new tenant starts with
func DefaultAgentConfig(tenantID string) *AgentConfig {
	return &AgentConfig{
		TenantID:         tenantID,
		Greeting:         "Thank you for calling. How may I assist you today?",
		Tone:             "professional",
		BusinessHours:    "{}",
		EscalationRules:  "{}",
		StoreTranscripts: true,
		StoreRecordings:  true,
		RetentionDays:    90,
	}
}

// AgentConfigUpdate carries the mutable agent configuration fields. Nil
// fields are left unchanged.
type AgentConfigUpdate struct {
	Greeting         *string `json:"greeting,omitempty"`
	Tone             *string `json:"tone,omitempty"`
	BusinessHours    *string `json:"business_hours,omitempty"`
	EscalationRules  *string `json:"escalation_rules,omitempty"`
	AllowedActions   *string `json:"allowed_actions,omitempty"`
	CustomPrompts    *string `json:"custom_prompts,omitempty"`
	StoreTranscripts *bool   `json:"store_transcripts,omitempty"`
	StoreRecordings  *bool   `json:"store_recordings,omitempty"`
	RetentionDays    *int    `json:"retention_days,omitempty"`
}
