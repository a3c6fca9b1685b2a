package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAgent))
	assert.True(t, RoleAgent.AtLeast(RoleViewer))
	assert.True(t, RoleViewer.AtLeast(RoleViewer))

	assert.False(t, RoleViewer.AtLeast(RoleAgent))
	assert.False(t, RoleAdmin.AtLeast(RoleOwner))
}

func TestRoleAtLeastUnknownRoles(t *testing.T) {
	// A corrupted stored role must never satisfy any requirement
	assert.False(t, Role("superuser").AtLeast(RoleViewer))
	// And no role satisfies an unknown minimum
	assert.False(t, RoleOwner.AtLeast(Role("root")))
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleViewer, RoleAgent, RoleAdmin, RoleOwner} {
		assert.True(t, r.Valid(), "role %s", r)
	}
	assert.False(t, Role("").Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestTenantStatusServable(t *testing.T) {
	assert.True(t, TenantActive.Servable())
	assert.False(t, TenantInactive.Servable())
	assert.False(t, TenantSuspended.Servable())
}
