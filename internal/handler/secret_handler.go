package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tenant-service/internal/authz"
	"tenant-service/internal/model"
	"tenant-service/internal/vault"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"
)

// RotateIntegrationSecret seals a credential for the given integration type
// and stores it, superseding any previous ciphertext for the pair. Requires
// admin. The vault is invoked only after the authorize call allowed access.
func RotateIntegrationSecret(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("secret_rotate")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceCredentials, TenantID: tc.TenantID}, authz.OpWrite) {
		return nil
	}

	integrationType := c.Param("type")
	if integrationType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "integration type is required"})
	}

	var req struct {
		Credential string     `json:"credential"`
		ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse secret rotation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Credential == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "credential is required"})
	}

	ciphertext, err := secretVault.Seal(tc.TenantID, integrationType, []byte(req.Credential))
	if err != nil {
		log.Error("Failed to seal credential", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to seal credential"})
	}

	rec := model.IntegrationSecret{
		TenantID:        tc.TenantID,
		IntegrationType: integrationType,
		Ciphertext:      ciphertext,
		ExpiresAt:       req.ExpiresAt,
	}
	if err := store.UpsertSecret(c.Request().Context(), &rec); err != nil {
		return storeError(c, err)
	}

	log.Info("Integration secret rotated",
		zap.String("tenant_id", tc.TenantID),
		zap.String("integration_type", integrationType))

	return c.JSON(http.StatusOK, echo.Map{
		"message":          "Credential stored successfully",
		"integration_type": integrationType,
	})
}

// GetIntegrationSecret unseals and returns the credential for the
// integration type. Requires admin; reading credentials is as sensitive as
// rotating them.
func GetIntegrationSecret(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("secret_access")

	tc, ok := requireTenantContext(c)
	if !ok {
		return nil
	}

	if !authorize(c, tc, authz.Resource{Kind: authz.ResourceCredentials, TenantID: tc.TenantID}, authz.OpRead) {
		return nil
	}

	integrationType := c.Param("type")
	if integrationType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "integration type is required"})
	}

	rec, err := store.SecretByTenantAndType(c.Request().Context(), tc.TenantID, integrationType)
	if err != nil {
		return storeError(c, err)
	}

	plaintext, err := secretVault.Unseal(tc.TenantID, integrationType, rec.Ciphertext)
	if err != nil {
		if errors.Is(err, vault.ErrDecryptionFailed) {
			// Fatal for this record. There is no plaintext fallback and no
			// retry under a different tenant's associated data.
			log.Error("Credential unseal failed",
				zap.String("tenant_id", tc.TenantID),
				zap.String("integration_type", integrationType))
			return c.JSON(http.StatusConflict, echo.Map{"error": "stored credential is unreadable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to unseal credential"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"integration_type": integrationType,
		"credential":       base64.StdEncoding.EncodeToString(plaintext),
		"expires_at":       rec.ExpiresAt,
	})
}
