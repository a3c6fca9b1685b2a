package authz

import (
	"tenant-service/internal/model"
)

// ResourceKind identifies a class of protected resources
type ResourceKind string

const (
	ResourceTenantProfile ResourceKind = "tenant_profile"
	ResourceAgentConfig   ResourceKind = "agent_config"
	ResourcePhoneNumbers  ResourceKind = "phone_numbers"
	ResourceCallHistory   ResourceKind = "call_history"
	ResourceCredentials   ResourceKind = "integration_credentials"
	ResourceTenantMembers ResourceKind = "tenant_members"

	// ResourceAgentPacks is shared reference data owned by no tenant. It is
	// the only kind without tenant affinity.
	ResourceAgentPacks ResourceKind = "agent_packs"
)

// Operation is the access class being requested
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
	OpAdmin Operation = "admin"
)

// roleNobody marks operations no user role may perform. It is not a real
// role: AtLeast is false for every role against it.
const roleNobody model.Role = "nobody"

// policyTable is the static policy: the minimum role required per resource
// kind and operation. Every (kind, operation) pair a known kind can see is
// present; there is no default-allow. The table is read-only after init and
// safe for unsynchronized concurrent reads.
var policyTable = map[ResourceKind]map[Operation]model.Role{
	ResourceTenantProfile: {
		OpRead:  model.RoleViewer,
		OpWrite: model.RoleAdmin,
		OpAdmin: model.RoleOwner, // Lifecycle status transitions
	},
	ResourceAgentConfig: {
		OpRead:  model.RoleViewer,
		OpWrite: model.RoleAdmin,
		OpAdmin: model.RoleOwner,
	},
	ResourcePhoneNumbers: {
		OpRead:  model.RoleViewer,
		OpWrite: model.RoleAdmin,
		OpAdmin: model.RoleOwner,
	},
	ResourceCallHistory: {
		OpRead:  model.RoleViewer,
		OpWrite: model.RoleAgent,
		OpAdmin: model.RoleAdmin, // Purge/export under retention rules
	},
	ResourceCredentials: {
		OpRead:  model.RoleAdmin, // Reading credentials is as sensitive as rotating them
		OpWrite: model.RoleAdmin,
		OpAdmin: model.RoleOwner,
	},
	ResourceTenantMembers: {
		OpRead:  model.RoleViewer,
		OpWrite: model.RoleAdmin,
		OpAdmin: model.RoleOwner,
	},
	ResourceAgentPacks: {
		OpRead:  model.RoleViewer, // Any authenticated member may read templates
		OpWrite: roleNobody,      // Template sync is a backend-service flow
		OpAdmin: roleNobody,
	},
}

// tenantAffinity lists which resource kinds belong to a tenant. Kinds not
// present here (agent packs) skip the tenant-match check.
var tenantAffinity = map[ResourceKind]bool{
	ResourceTenantProfile: true,
	ResourceAgentConfig:   true,
	ResourcePhoneNumbers:  true,
	ResourceCallHistory:   true,
	ResourceCredentials:   true,
	ResourceTenantMembers: true,
	ResourceAgentPacks:    false,
}

// MinimumRole returns the role required for the operation on the kind, and
// whether the kind is recognized at all
func MinimumRole(kind ResourceKind, op Operation) (model.Role, bool) {
	ops, ok := policyTable[kind]
	if !ok {
		return roleNobody, false
	}
	min, ok := ops[op]
	if !ok {
		return roleNobody, false
	}
	return min, true
}

// HasTenantAffinity reports whether resources of this kind belong to a tenant
func HasTenantAffinity(kind ResourceKind) bool {
	return tenantAffinity[kind]
}
