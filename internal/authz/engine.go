package authz

import (
	"time"

	"tenant-service/internal/audit"
	"tenant-service/internal/model"
	"tenant-service/prometheus"
)

// DenyReason classifies why a request was denied
type DenyReason string

const (
	ReasonCrossTenant      DenyReason = "cross_tenant"
	ReasonInsufficientRole DenyReason = "insufficient_role"
	ReasonUnknownResource  DenyReason = "unknown_resource"
)

// Decision is the outcome of an authorize call. RequiredRole is the minimum
// role the policy demands for the operation, when the kind is known.
type Decision struct {
	Allowed      bool
	Reason       DenyReason
	RequiredRole model.Role
}

// Allow is the affirmative decision
func allow(required model.Role) Decision {
	return Decision{Allowed: true, RequiredRole: required}
}

func deny(reason DenyReason, required model.Role) Decision {
	return Decision{Allowed: false, Reason: reason, RequiredRole: required}
}

// Resource identifies one protected resource: its kind and, for kinds with
// tenant affinity, the tenant that owns it
type Resource struct {
	Kind     ResourceKind
	TenantID string
}

// Engine is the central authorization decision point. It holds no mutable
// state beyond the static policy table and is safe for concurrent use. Each
// Authorize call emits one audit record, best-effort.
type Engine struct {
	sink audit.Sink
}

// NewEngine creates an engine reporting decisions to the given audit sink
func NewEngine(sink audit.Sink) *Engine {
	return &Engine{sink: sink}
}

// Authorize decides whether the resolved tenant context may perform the
// operation on the resource. The decision is a pure function of the context,
// the resource and the policy table; it never touches storage.
//
// Order matters: the tenant-match check runs first and applies to every
// principal including the service principal, so cross-tenant access is
// denied regardless of role. Unknown resource kinds fail closed.
func (e *Engine) Authorize(tc TenantContext, res Resource, op Operation) Decision {
	decision := e.decide(tc, res, op)
	e.record(tc, res, op, decision)
	return decision
}

func (e *Engine) decide(tc TenantContext, res Resource, op Operation) Decision {
	min, known := MinimumRole(res.Kind, op)
	if !known {
		return deny(ReasonUnknownResource, min)
	}

	if HasTenantAffinity(res.Kind) {
		// An empty or mismatched resource tenant is cross-tenant access.
		// Empty means the caller failed to attribute the resource; that is
		// never allowed to default open.
		if res.TenantID == "" || res.TenantID != tc.TenantID {
			return deny(ReasonCrossTenant, min)
		}
	}

	// The service principal acts only within its already-resolved tenant,
	// which the check above has confirmed. No role to evaluate.
	if tc.Principal.IsService() {
		return allow(min)
	}

	if min == roleNobody || !tc.Role.AtLeast(min) {
		return deny(ReasonInsufficientRole, min)
	}

	return allow(min)
}

// record emits the audit record and decision metrics. Failures to deliver
// are the sink's problem; authorization never blocks on it.
func (e *Engine) record(tc TenantContext, res Resource, op Operation, d Decision) {
	decision := "allow"
	reason := ""
	if !d.Allowed {
		decision = "deny"
		reason = string(d.Reason)
	}

	prometheus.RecordAuthzDecision(string(res.Kind), string(op), decision, reason)

	if e.sink == nil {
		return
	}
	e.sink.Record(audit.Record{
		Timestamp: time.Now(),
		Principal: tc.Principal.AuditID(),
		TenantID:  tc.TenantID,
		Resource:  string(res.Kind),
		Operation: string(op),
		Decision:  decision,
		Reason:    reason,
	})
}
