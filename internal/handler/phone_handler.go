package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tenant-service/internal/authz"
	"tenant-service/internal/resolver"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

// ListPhoneNumbers returns all phone routes owned by the acting tenant
func ListPhoneNumbers(c echo.Context) error {
	prometheus.RecordTenantOperation("phone_list")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourcePhoneNumbers, TenantID: tc.TenantID}, authz.OpRead) {
		return nil
	}

	routes, err := store.RoutesByTenant(c.Request().Context(), tc.TenantID)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"phone_numbers": routes})
}

// AssignPhoneNumber routes a number to the acting tenant. Requires admin.
// Fails while another tenant holds an active route for the number; the
// previous route must be deactivated first.
func AssignPhoneNumber(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("phone_assign")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourcePhoneNumbers, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse phone assignment request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	number, err := resolver.NormalizeNumber(req.PhoneNumber)
	if err != nil {
		log.Warn("Invalid phone number", zap.String("phone_number", req.PhoneNumber))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone number"})
	}

	route, err := store.AssignRoute(c.Request().Context(), tc.TenantID, number)
	if err != nil {
		return storeError(c, err)
	}

	log.Info("Phone number assigned",
		zap.String("tenant_id", tc.TenantID),
		zap.String("phone_number", number))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Phone number assigned successfully",
		"route":   route,
	})
}

// DeactivatePhoneNumber deactivates the tenant's route for the number.
// Requires admin.
func DeactivatePhoneNumber(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("phone_deactivate")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourcePhoneNumbers, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	number, err := resolver.NormalizeNumber(c.Param("number"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone number"})
	}

	if err := store.DeactivateRoute(c.Request().Context(), tc.TenantID, number); err != nil {
		return storeError(c, err)
	}

	log.Info("Phone number deactivated",
		zap.String("tenant_id", tc.TenantID),
		zap.String("phone_number", number))

	return c.JSON(http.StatusOK, echo.Map{"message": "Phone number deactivated"})
}
