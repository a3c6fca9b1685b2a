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

// ListTenantUsers returns all memberships of the acting tenant
func ListTenantUsers(c echo.Context) error {
	prometheus.RecordTenantOperation("list_users")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceTenantMembers, TenantID: tc.TenantID}, authz.OpRead) {
		return nil
	}

	members, err := store.MembersByTenant(c.Request().Context(), tc.TenantID)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"users": members})
}

// InviteUser adds an existing user to the acting tenant with a role.
// Requires admin. The invited principal must already exist in the external
// auth system; a full invite flow emails a signup link.
func InviteUser(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("invite_user")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceTenantMembers, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	var req struct {
		UserID string     `json:"user_id"`
		Role   model.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invite request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.UserID == "" || !req.Role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and a valid role are required"})
	}

	membership := model.Membership{
		PrincipalID: req.UserID,
		TenantID:    tc.TenantID,
		Role:        req.Role,
	}
	if err := store.AddMembership(c.Request().Context(), &membership); err != nil {
		return storeError(c, err)
	}

	log.Info("User added to tenant",
		zap.String("tenant_id", tc.TenantID),
		zap.String("user_id", req.UserID),
		zap.String("role", req.Role.String()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "User added to tenant successfully",
		"membership": membership,
	})
}

// RemoveUser removes a member from the acting tenant. Requires admin.
// Removing the last owner is blocked by the directory.
func RemoveUser(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("remove_user")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceTenantMembers, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	targetUserID := c.Param("user_id")
	if targetUserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	if err := store.RemoveMembership(c.Request().Context(), tc.TenantID, targetUserID); err != nil {
		return storeError(c, err)
	}

	log.Info("User removed from tenant",
		zap.String("tenant_id", tc.TenantID),
		zap.String("user_id", targetUserID))

	return c.JSON(http.StatusOK, echo.Map{"message": "User removed from tenant successfully"})
}
