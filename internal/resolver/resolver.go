package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tenant-service/internal/authz"
	"tenant-service/internal/directory"
	"tenant-service/prometheus"
)

var (
	// ErrNoTenantAssociation indicates the principal belongs to no tenant
	ErrNoTenantAssociation = errors.New("principal is not associated with any tenant")

	// ErrAmbiguousTenant indicates the principal holds more than one
	// membership. The directory must never allow that under the
	// one-tenant-per-principal policy, so this is an invariant violation,
	// not a feature.
	ErrAmbiguousTenant = errors.New("principal holds more than one tenant membership")

	// ErrUnknownDestination indicates no active route exists for the number
	ErrUnknownDestination = errors.New("no active tenant for destination number")

	// ErrTenantNotServable indicates the routed tenant is suspended or inactive
	ErrTenantNotServable = errors.New("tenant is not servable")
)

// e164Pattern matches a normalized E.164 number: + followed by 7 to 15
// digits, no leading zero.
var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// NormalizeNumber strips common separators and converts the 00 international
// prefix, returning the canonical E.164 form or an error for anything that
// cannot be one.
func NormalizeNumber(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	}

	if !e164Pattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q is not a valid E.164 number", ErrUnknownDestination, raw)
	}
	return cleaned, nil
}

// Resolver derives the acting tenant for a request. It only reads directory
// state and has no side effects.
type Resolver struct {
	store directory.Store
}

// New creates a resolver over the given directory
func New(store directory.Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveFromPrincipal derives the tenant context for an interactive user
// from their membership. Exactly one membership is expected.
func (r *Resolver) ResolveFromPrincipal(ctx context.Context, principalID string) (authz.TenantContext, error) {
	memberships, err := r.store.MembershipsByPrincipal(ctx, principalID)
	if err != nil {
		prometheus.RecordResolution("principal", "storage_error")
		return authz.TenantContext{}, err
	}

	switch len(memberships) {
	case 0:
		prometheus.RecordResolution("principal", "no_association")
		return authz.TenantContext{}, ErrNoTenantAssociation
	case 1:
		prometheus.RecordResolution("principal", "resolved")
		return authz.TenantContext{
			TenantID:  memberships[0].TenantID,
			Principal: authz.UserPrincipal(principalID),
			Role:      memberships[0].Role,
		}, nil
	default:
		prometheus.RecordResolution("principal", "ambiguous")
		return authz.TenantContext{}, ErrAmbiguousTenant
	}
}

// ResolveFromDestination derives the tenant context for a service-context
// call from the verified destination number of an inbound call. Only the
// destination is trusted: caller-supplied fields such as the claimed origin
// are attacker-controlled and are never used to resolve tenant identity.
func (r *Resolver) ResolveFromDestination(ctx context.Context, rawNumber string) (authz.TenantContext, error) {
	number, err := NormalizeNumber(rawNumber)
	if err != nil {
		prometheus.RecordResolution("destination", "invalid_number")
		return authz.TenantContext{}, err
	}

	route, err := r.store.ActiveRouteByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			prometheus.RecordResolution("destination", "unknown")
			return authz.TenantContext{}, fmt.Errorf("%w: %s", ErrUnknownDestination, number)
		}
		prometheus.RecordResolution("destination", "storage_error")
		return authz.TenantContext{}, err
	}

	tenant, err := r.store.TenantByID(ctx, route.TenantID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			// A route to a missing tenant is treated as unservable rather
			// than unknown so the dangling route is visible in metrics.
			prometheus.RecordResolution("destination", "not_servable")
			return authz.TenantContext{}, ErrTenantNotServable
		}
		prometheus.RecordResolution("destination", "storage_error")
		return authz.TenantContext{}, err
	}

	if !tenant.Status.Servable() {
		prometheus.RecordResolution("destination", "not_servable")
		return authz.TenantContext{}, fmt.Errorf("%w: tenant %s is %s", ErrTenantNotServable, tenant.ID, tenant.Status)
	}

	prometheus.RecordResolution("destination", "resolved")
	return authz.TenantContext{
		TenantID:  tenant.ID,
		Principal: authz.ServicePrincipal(),
	}, nil
}
