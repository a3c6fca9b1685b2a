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

// GetTenantProfile returns the acting tenant's profile
func GetTenantProfile(c echo.Context) error {
	prometheus.RecordTenantOperation("profile_access")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceTenantProfile, TenantID: tc.TenantID}, authz.OpRead) {
		return nil
	}

	tenant, err := store.TenantByID(c.Request().Context(), tc.TenantID)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenant":    tenant,
		"user_role": tc.Role,
	})
}

// UpdateTenantProfile updates the mutable profile fields. Requires admin.
func UpdateTenantProfile(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("profile_update")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceTenantProfile, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	var update model.TenantUpdate
	if err := c.Bind(&update); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	// Lifecycle status changes go through the admin operation, never the
	// profile update
	update.Status = nil

	if update.Name == nil && update.Timezone == nil && update.Industry == nil && update.DefaultEmailRecipients == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid fields to update"})
	}

	tenant, err := store.UpdateTenant(c.Request().Context(), tc.TenantID, update)
	if err != nil {
		return storeError(c, err)
	}

	log.Info("Tenant profile updated", zap.String("tenant_id", tenant.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant updated successfully",
		"tenant":  tenant,
	})
}

// SetTenantStatus transitions the tenant lifecycle status. Requires owner.
// Tenants are never hard-deleted here; deactivation is a status transition.
func SetTenantStatus(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("status_change")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceTenantProfile, TenantID: tc.TenantID}, authz.OpAdmin) {
		return nil
	}

	var req struct {
		Status model.TenantStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse status change request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	switch req.Status {
	case model.TenantActive, model.TenantInactive, model.TenantSuspended:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	prior, err := store.TenantByID(c.Request().Context(), tc.TenantID)
	if err != nil {
		return storeError(c, err)
	}

	tenant, err := store.UpdateTenant(c.Request().Context(), tc.TenantID, model.TenantUpdate{Status: &req.Status})
	if err != nil {
		return storeError(c, err)
	}

	// The gauge tracks transitions in and out of "active" only; repeating the
	// current status or moving between the two non-active states is a no-op.
	if prior.Status != tenant.Status {
		if tenant.Status == model.TenantActive {
			prometheus.ActiveTenantsGauge.Inc()
		} else if prior.Status == model.TenantActive {
			prometheus.ActiveTenantsGauge.Dec()
		}
	}

	log.Info("Tenant status changed",
		zap.String("tenant_id", tenant.ID),
		zap.String("status", string(tenant.Status)))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant status updated",
		"tenant":  tenant,
	})
}
