package authz

import (
	"tenant-service/internal/model"
)

// PrincipalKind distinguishes interactive users from the backend service
type PrincipalKind string

const (
	PrincipalUser    PrincipalKind = "user"
	PrincipalService PrincipalKind = "service"
)

// Principal is an authenticated actor: a human user identified by id, or the
// backend service itself for non-user-initiated flows such as webhook
// processing. One Authorize function serves both kinds; the service kind
// skips the role check but never the tenant-match check.
type Principal struct {
	Kind   PrincipalKind
	UserID string // Empty for the service principal
}

// UserPrincipal returns a principal for the given user id
func UserPrincipal(userID string) Principal {
	return Principal{Kind: PrincipalUser, UserID: userID}
}

// ServicePrincipal returns the distinguished backend service principal
func ServicePrincipal() Principal {
	return Principal{Kind: PrincipalService}
}

// IsService reports whether this is the backend service principal
func (p Principal) IsService() bool {
	return p.Kind == PrincipalService
}

// AuditID returns the identity recorded in audit records
func (p Principal) AuditID() string {
	if p.IsService() {
		return "service"
	}
	return p.UserID
}

// TenantContext is the request-scoped result of tenant resolution: the
// tenant the request acts within, the principal acting, and the principal's
// role in that tenant (meaningful only for user principals). It is never
// persisted or shared across requests; every call boundary passes it
// explicitly instead of relying on ambient session state.
type TenantContext struct {
	TenantID  string
	Principal Principal
	Role      model.Role
}
