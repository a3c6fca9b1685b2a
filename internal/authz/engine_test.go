package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/internal/audit"
	"tenant-service/internal/model"
)

const (
	tenantA = "11111111-1111-1111-1111-111111111111"
	tenantB = "22222222-2222-2222-2222-222222222222"
)

func userContext(tenantID string, role model.Role) TenantContext {
	return TenantContext{
		TenantID:  tenantID,
		Principal: UserPrincipal("user-1"),
		Role:      role,
	}
}

func serviceContext(tenantID string) TenantContext {
	return TenantContext{
		TenantID:  tenantID,
		Principal: ServicePrincipal(),
	}
}

func TestAuthorizeCrossTenantAlwaysDenied(t *testing.T) {
	engine := NewEngine(nil)

	contexts := map[string]TenantContext{
		"viewer":  userContext(tenantA, model.RoleViewer),
		"owner":   userContext(tenantA, model.RoleOwner),
		"service": serviceContext(tenantA),
	}

	for name, tc := range contexts {
		t.Run(name, func(t *testing.T) {
			for _, op := range []Operation{OpRead, OpWrite, OpAdmin} {
				d := engine.Authorize(tc, Resource{Kind: ResourceAgentConfig, TenantID: tenantB}, op)
				assert.False(t, d.Allowed, "op %s", op)
				assert.Equal(t, ReasonCrossTenant, d.Reason, "op %s", op)
			}
		})
	}
}

func TestAuthorizeEmptyResourceTenantDenied(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Authorize(userContext(tenantA, model.RoleOwner), Resource{Kind: ResourceTenantProfile}, OpRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCrossTenant, d.Reason)
}

func TestAuthorizeRoleOrdering(t *testing.T) {
	engine := NewEngine(nil)
	res := Resource{Kind: ResourceTenantProfile, TenantID: tenantA}

	tests := []struct {
		role    model.Role
		op      Operation
		allowed bool
	}{
		{model.RoleViewer, OpRead, true},
		{model.RoleViewer, OpWrite, false},
		{model.RoleViewer, OpAdmin, false},
		{model.RoleAgent, OpRead, true},
		{model.RoleAgent, OpWrite, false},
		{model.RoleAdmin, OpRead, true},
		{model.RoleAdmin, OpWrite, true},
		{model.RoleAdmin, OpAdmin, false},
		{model.RoleOwner, OpWrite, true},
		{model.RoleOwner, OpAdmin, true},
	}

	for _, tt := range tests {
		d := engine.Authorize(userContext(tenantA, tt.role), res, tt.op)
		assert.Equal(t, tt.allowed, d.Allowed, "role %s op %s", tt.role, tt.op)
		if !tt.allowed {
			assert.Equal(t, ReasonInsufficientRole, d.Reason, "role %s op %s", tt.role, tt.op)
		}
	}
}

func TestAuthorizeUnknownRoleDenied(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Authorize(userContext(tenantA, "superuser"), Resource{Kind: ResourceTenantProfile, TenantID: tenantA}, OpRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientRole, d.Reason)
}

func TestAuthorizeUnknownResourceFailsClosed(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Authorize(userContext(tenantA, model.RoleOwner), Resource{Kind: "billing", TenantID: tenantA}, OpRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnknownResource, d.Reason)
}

func TestAuthorizeServiceBypassesRoleWithinTenant(t *testing.T) {
	engine := NewEngine(nil)

	for _, op := range []Operation{OpRead, OpWrite, OpAdmin} {
		d := engine.Authorize(serviceContext(tenantA), Resource{Kind: ResourceCallHistory, TenantID: tenantA}, op)
		assert.True(t, d.Allowed, "op %s", op)
	}
}

func TestAuthorizeCredentialsRequireAdmin(t *testing.T) {
	engine := NewEngine(nil)
	res := Resource{Kind: ResourceCredentials, TenantID: tenantA}

	d := engine.Authorize(userContext(tenantA, model.RoleAgent), res, OpRead)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientRole, d.Reason)

	d = engine.Authorize(userContext(tenantA, model.RoleAdmin), res, OpRead)
	assert.True(t, d.Allowed)
}

func TestAuthorizeAgentPacks(t *testing.T) {
	engine := NewEngine(nil)
	// Shared reference data: no tenant id on the resource
	res := Resource{Kind: ResourceAgentPacks}

	d := engine.Authorize(userContext(tenantA, model.RoleViewer), res, OpRead)
	assert.True(t, d.Allowed, "any member may read packs")

	d = engine.Authorize(userContext(tenantA, model.RoleOwner), res, OpWrite)
	assert.False(t, d.Allowed, "no user role may write packs")
	assert.Equal(t, ReasonInsufficientRole, d.Reason)

	d = engine.Authorize(serviceContext(tenantA), res, OpWrite)
	assert.True(t, d.Allowed, "pack sync is a service flow")
}

func TestAuthorizeEmitsAuditRecords(t *testing.T) {
	sink := &audit.CaptureSink{}
	engine := NewEngine(sink)

	engine.Authorize(userContext(tenantA, model.RoleViewer), Resource{Kind: ResourceTenantProfile, TenantID: tenantA}, OpRead)
	engine.Authorize(userContext(tenantA, model.RoleViewer), Resource{Kind: ResourceTenantProfile, TenantID: tenantB}, OpWrite)
	engine.Authorize(serviceContext(tenantA), Resource{Kind: ResourceAgentConfig, TenantID: tenantA}, OpRead)

	records := sink.Records()
	require.Len(t, records, 3)

	assert.Equal(t, "allow", records[0].Decision)
	assert.Equal(t, "user-1", records[0].Principal)
	assert.Equal(t, tenantA, records[0].TenantID)
	assert.Equal(t, "tenant_profile", records[0].Resource)
	assert.Empty(t, records[0].Reason)

	assert.Equal(t, "deny", records[1].Decision)
	assert.Equal(t, "cross_tenant", records[1].Reason)

	assert.Equal(t, "allow", records[2].Decision)
	assert.Equal(t, "service", records[2].Principal)
}
