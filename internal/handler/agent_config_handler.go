package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tenant-service/internal/authz"
	"tenant-service/internal/model"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

// GetAgentConfig returns the acting tenant's agent configuration
func GetAgentConfig(c echo.Context) error {
	prometheus.RecordTenantOperation("agent_config_access")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceAgentConfig, TenantID: tc.TenantID}, authz.OpRead) {
		return nil
	}

	cfg, err := store.AgentConfigByTenant(c.Request().Context(), tc.TenantID)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(http.StatusOK, cfg)
}

// UpdateAgentConfig updates the tenant's agent configuration. Requires admin.
func UpdateAgentConfig(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("agent_config_update")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceAgentConfig, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	var update model.AgentConfigUpdate
	if err := c.Bind(&update); err != nil {
		log.Error("Failed to parse agent config update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	cfg, err := store.UpdateAgentConfig(c.Request().Context(), tc.TenantID, update)
	if err != nil {
		return storeError(c, err)
	}

	log.Info("Agent config updated", zap.String("tenant_id", tc.TenantID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Agent config updated successfully",
		"config":  cfg,
	})
}

// ListAgentPacks returns the shared agent templates. They belong to no
// tenant; any authenticated member may read them.
func ListAgentPacks(c echo.Context) error {
	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceAgentPacks}, authz.OpRead) {
		return nil
	}

	packs, err := store.AgentPacks(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"agent_packs": packs})
}
