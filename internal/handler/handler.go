package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tenant-service/internal/authz"
	"tenant-service/internal/directory"
	"tenant-service/internal/onboarding"
	"tenant-service/internal/resolver"
	"tenant-service/internal/vault"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

// Handler dependencies, set once at startup via Init
var (
	store       directory.Store
	tenants     *resolver.Resolver
	engine      *authz.Engine
	secretVault *vault.Vault
	coordinator *onboarding.Coordinator
)

// Init wires the handlers to the core components
func Init(s directory.Store, r *resolver.Resolver, e *authz.Engine, v *vault.Vault, o *onboarding.Coordinator) {
	store = s
	tenants = r
	engine = e
	secretVault = v
	coordinator = o
}

// principalID extracts the authenticated user id set by the auth middleware
func principalID(c echo.Context) (string, bool) {
	id, ok := c.Get("user_id").(string)
	return id, ok && id != ""
}

// requireTenantContext resolves the acting tenant for the authenticated
// user and stores the tenant id in the echo context for request logging.
// On failure it writes the response and returns ok=false.
func requireTenantContext(c echo.Context) (authz.TenantContext, bool) {
	log := logger.FromEcho(c)

	userID, ok := principalID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		return authz.TenantContext{}, false
	}

	tc, err := tenants.ResolveFromPrincipal(c.Request().Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrNoTenantAssociation):
			log.Warn("Principal has no tenant association", zap.String("user_id", userID))
			c.JSON(http.StatusNotFound, echo.Map{"error": "no tenant association"})
		case errors.Is(err, resolver.ErrAmbiguousTenant):
			// Directory invariant violation; surface as a server fault
			log.Error("Principal holds multiple memberships", zap.String("user_id", userID))
			c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
		default:
			log.Error("Tenant resolution failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
		}
		return authz.TenantContext{}, false
	}

	c.Set("tenant_id", tc.TenantID)
	return tc, true
}

// authorize runs the engine and, on deny, writes a generic forbidden
// response. The specific reason stays in the audit trail and logs only.
func authorize(c echo.Context, tc authz.TenantContext, res authz.Resource, op authz.Operation) bool {
	decision := engine.Authorize(tc, res, op)
	if decision.Allowed {
		return true
	}

	logger.FromEcho(c).Warn("Authorization denied",
		zap.String("tenant_id", tc.TenantID),
		zap.String("resource", string(res.Kind)),
		zap.String("operation", string(op)),
		zap.String("reason", string(decision.Reason)))

	c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	return false
}

// storeError maps directory errors to HTTP responses
func storeError(c echo.Context, err error) error {
	log := logger.FromEcho(c)

	switch {
	case errors.Is(err, directory.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, directory.ErrLastOwner):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot remove the last owner"})
	case errors.Is(err, directory.ErrDuplicateMembership):
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already belongs to a tenant"})
	case errors.Is(err, directory.ErrRouteConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "phone number already assigned"})
	default:
		prometheus.RecordCoreError("storage_unavailable")
		log.Error("Storage operation failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
	}
}
