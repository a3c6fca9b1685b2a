package directory

import (
	"context"
	"errors"

	"tenant-service/internal/model"
)

// Store is the authoritative source of tenants, memberships, phone routes,
// agent configuration and sealed integration secrets. It is pure data access:
// every policy decision lives in the resolver, the authorization engine or
// the onboarding coordinator.
//
// Uniqueness of memberships and of active phone routes is enforced by the
// backing storage, not checked-then-inserted here, so two concurrent writers
// cannot both succeed.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateMembership indicates the principal already holds a membership
	ErrDuplicateMembership = errors.New("principal already holds a membership")

	// ErrLastOwner indicates the removal would leave the tenant without an owner
	ErrLastOwner = errors.New("tenant must retain at least one owner")

	// ErrRouteConflict indicates the phone number is already actively routed
	ErrRouteConflict = errors.New("phone number already routed to an active tenant")

	// ErrStorageUnavailable indicates a transient storage failure. This is the
	// only retryable error class; retries and backoff belong to the caller.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store provides transactional reads and writes over the tenant directory
type Store interface {
	// Tenants
	TenantByID(ctx context.Context, id string) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, id string, update model.TenantUpdate) (*model.Tenant, error)

	// CreateTenantWithOwner commits the tenant, its owner membership and the
	// initial agent config as one atomic unit. Either all three become
	// visible or none of them do.
	CreateTenantWithOwner(ctx context.Context, tenant *model.Tenant, principalID string, cfg *model.AgentConfig) error

	// Memberships
	MembershipsByPrincipal(ctx context.Context, principalID string) ([]model.Membership, error)
	MembersByTenant(ctx context.Context, tenantID string) ([]model.Membership, error)
	AddMembership(ctx context.Context, m *model.Membership) error
	RemoveMembership(ctx context.Context, tenantID, principalID string) error

	// Phone routes
	ActiveRouteByNumber(ctx context.Context, number string) (*model.PhoneRoute, error)
	RoutesByTenant(ctx context.Context, tenantID string) ([]model.PhoneRoute, error)
	AssignRoute(ctx context.Context, tenantID, number string) (*model.PhoneRoute, error)
	DeactivateRoute(ctx context.Context, tenantID, number string) error

	// Agent configuration
	AgentConfigByTenant(ctx context.Context, tenantID string) (*model.AgentConfig, error)
	UpdateAgentConfig(ctx context.Context, tenantID string, update model.AgentConfigUpdate) (*model.AgentConfig, error)

	// Agent packs (shared reference data, no tenant affinity)
	AgentPacks(ctx context.Context) ([]model.AgentPack, error)

	// Integration secrets. UpsertSecret supersedes any previous ciphertext
	// for the same (tenant, integration type) pair atomically.
	UpsertSecret(ctx context.Context, rec *model.IntegrationSecret) error
	SecretByTenantAndType(ctx context.Context, tenantID, integrationType string) (*model.IntegrationSecret, error)
}
