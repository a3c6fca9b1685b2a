package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tenant-service/internal/onboarding"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

// OnboardTenant provisions a new tenant with the authenticated user as its
// owner. This is the one membership-creating path with no prior authorize
// call: there is no tenant yet to check against.
func OnboardTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("onboard")

	userID, ok := principalID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var attrs onboarding.TenantAttributes
	if err := c.Bind(&attrs); err != nil {
		log.Error("Failed to parse onboarding request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenant, err := coordinator.Onboard(c.Request().Context(), userID, attrs)
	if err != nil {
		switch {
		case errors.Is(err, onboarding.ErrInvalidAttributes):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, onboarding.ErrDuplicateOnboarding):
			log.Warn("Duplicate onboarding attempt", zap.String("user_id", userID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already belongs to a tenant"})
		default:
			return storeError(c, err)
		}
	}

	log.Info("Tenant onboarded",
		zap.String("tenant_id", tenant.ID),
		zap.String("name", tenant.Name),
		zap.String("owner_principal_id", userID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"tenant":  tenant,
	})
}
