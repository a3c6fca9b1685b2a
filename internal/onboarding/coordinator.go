package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tenant-service/internal/directory"
	"tenant-service/internal/model"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

var (
	// ErrDuplicateOnboarding indicates the principal already holds a
	// membership somewhere. A principal may not own two tenants; this is
	// fixed policy, not a limitation to engineer around.
	ErrDuplicateOnboarding = errors.New("principal already belongs to a tenant")

	// ErrInvalidAttributes indicates the tenant attributes are unusable
	ErrInvalidAttributes = errors.New("invalid tenant attributes")
)

// TenantAttributes carries the signup fields for a new tenant
type TenantAttributes struct {
	Name                   string   `json:"name"`
	Timezone               string   `json:"timezone,omitempty"`
	Industry               string   `json:"industry,omitempty"`
	DefaultEmailRecipients []string `json:"default_email_recipients,omitempty"`
}

// Coordinator orchestrates the atomic creation of a tenant and its first
// owner membership. This is the only path that may create a membership
// without a prior authorize call, since no tenant exists yet to check
// against. The state machine is Requested -> Provisioned, or Failed with a
// full rollback; a tenant without an owner membership is never observable.
type Coordinator struct {
	store directory.Store
}

// New creates a coordinator over the given directory
func New(store directory.Store) *Coordinator {
	return &Coordinator{store: store}
}

// Onboard provisions the tenant, the owner membership and the default agent
// configuration as one atomic unit
func (c *Coordinator) Onboard(ctx context.Context, principalID string, attrs TenantAttributes) (*model.Tenant, error) {
	log := logger.FromContext(ctx)

	if principalID == "" {
		return nil, fmt.Errorf("%w: principal id is required", ErrInvalidAttributes)
	}
	if strings.TrimSpace(attrs.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAttributes)
	}

	// Fast pre-check for a friendlier failure. The storage-level unique
	// index on principal_id remains the serialization point: two concurrent
	// onboarding requests both passing this check still yield exactly one
	// success.
	memberships, err := c.store.MembershipsByPrincipal(ctx, principalID)
	if err != nil {
		prometheus.RecordOnboarding("failed")
		return nil, err
	}
	if len(memberships) > 0 {
		prometheus.RecordOnboarding("duplicate")
		return nil, ErrDuplicateOnboarding
	}

	tenant := &model.Tenant{
		Name:                   strings.TrimSpace(attrs.Name),
		Timezone:               attrs.Timezone,
		Industry:               attrs.Industry,
		Status:                 model.TenantActive,
		DefaultEmailRecipients: strings.Join(attrs.DefaultEmailRecipients, ","),
	}
	if tenant.Timezone == "" {
		tenant.Timezone = "America/Toronto"
	}

	cfg := model.DefaultAgentConfig("")

	if err := c.store.CreateTenantWithOwner(ctx, tenant, principalID, cfg); err != nil {
		if errors.Is(err, directory.ErrDuplicateMembership) {
			prometheus.RecordOnboarding("duplicate")
			return nil, ErrDuplicateOnboarding
		}
		prometheus.RecordOnboarding("failed")
		log.Error("Tenant onboarding failed", zap.Error(err))
		return nil, err
	}

	prometheus.RecordOnboarding("provisioned")
	prometheus.ActiveTenantsGauge.Inc()
	log.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID),
		zap.String("name", tenant.Name),
		zap.String("owner_principal_id", principalID))

	return tenant, nil
}
