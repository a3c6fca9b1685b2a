package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tenant-service/internal/authz"
	"tenant-service/internal/resolver"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

// InboundCall handles a telephony provider webhook for an incoming call.
// No user session exists here: tenant identity comes from the verified
// destination number only, and the request proceeds as the service
// principal, which is still subject to the tenant-match check on every
// resource it touches. The caller-supplied origin is recorded for logging
// but never used for resolution.
func InboundCall(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("inbound_call")

	var req struct {
		To     string `json:"to"`      // Verified destination number
		From   string `json:"from"`    // Attacker-controlled, informational only
		CallID string `json:"call_id"` // Provider call identifier
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse inbound call webhook", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tc, err := tenants.ResolveFromDestination(c.Request().Context(), req.To)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrUnknownDestination):
			log.Warn("Inbound call to unrouted number", zap.String("to", req.To))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown destination"})
		case errors.Is(err, resolver.ErrTenantNotServable):
			log.Warn("Inbound call to unservable tenant", zap.String("to", req.To))
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "destination not in service"})
		default:
			log.Error("Destination resolution failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
		}
	}
	c.Set("tenant_id", tc.TenantID)

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceAgentConfig, TenantID: tc.TenantID}, authz.OpRead) {
		return nil
	}

	cfg, err := store.AgentConfigByTenant(c.Request().Context(), tc.TenantID)
	if err != nil {
		return storeError(c, err)
	}

	log.Info("Inbound call routed",
		zap.String("tenant_id", tc.TenantID),
		zap.String("call_id", req.CallID),
		zap.String("from", req.From))

	return c.JSON(http.StatusOK, echo.Map{
		"tenant_id":    tc.TenantID,
		"agent_config": cfg,
	})
}
