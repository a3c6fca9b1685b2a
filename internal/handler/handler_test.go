package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/internal/audit"
	"tenant-service/internal/authz"
	"tenant-service/internal/directory"
	"tenant-service/internal/model"
	"tenant-service/internal/onboarding"
	"tenant-service/internal/resolver"
	"tenant-service/internal/vault"
	"tenant-service/prometheus"
)

// testEnv wires the handlers to an in-memory directory
type testEnv struct {
	store *directory.MemoryStore
	sink  *audit.CaptureSink
	echo  *echo.Echo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := directory.NewMemoryStore()
	sink := &audit.CaptureSink{}
	v, err := vault.New("handler-test-master-key")
	require.NoError(t, err)

	Init(store, resolver.New(store), authz.NewEngine(sink), v, onboarding.New(store))

	return &testEnv{store: store, sink: sink, echo: echo.New()}
}

// request builds an echo context for a JSON request authenticated as userID.
// Pass an empty userID for an unauthenticated request.
func (env *testEnv) request(method, target, userID, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	return c, rec
}

func (env *testEnv) seedTenantWithMember(t *testing.T, tenantID, userID string, role model.Role) {
	t.Helper()
	env.store.SeedTenant(model.Tenant{ID: tenantID, Name: "Seeded Clinic", Timezone: "America/Toronto"})
	env.store.SeedMembership(model.Membership{PrincipalID: userID, TenantID: tenantID, Role: role})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOnboardTenant(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPost, "/onboard", "user-1", `{"name":"Northside Dental","industry":"dental"}`)
	require.NoError(t, OnboardTenant(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	tenant := body["tenant"].(map[string]any)
	assert.Equal(t, "Northside Dental", tenant["name"])
	assert.NotEmpty(t, tenant["id"])

	// The owner can immediately read the profile
	c, rec = env.request(http.MethodGet, "/tenant/profile", "user-1", "")
	require.NoError(t, GetTenantProfile(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOnboardTenantDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "user-1", model.RoleOwner)

	c, rec := env.request(http.MethodPost, "/onboard", "user-1", `{"name":"Second Clinic"}`)
	require.NoError(t, OnboardTenant(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOnboardTenantUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPost, "/onboard", "", `{"name":"Clinic"}`)
	require.NoError(t, OnboardTenant(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTenantProfileNoAssociation(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodGet, "/tenant/profile", "stranger", "")
	require.NoError(t, GetTenantProfile(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTenantProfileRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "viewer-1", model.RoleViewer)
	env.seedTenantWithMember(t, "tenant-2", "admin-1", model.RoleAdmin)

	c, rec := env.request(http.MethodPut, "/tenant/profile", "viewer-1", `{"name":"Renamed"}`)
	require.NoError(t, UpdateTenantProfile(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access denied")

	c, rec = env.request(http.MethodPut, "/tenant/profile", "admin-1", `{"name":"Renamed"}`)
	require.NoError(t, UpdateTenantProfile(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Each update lands on the caller's own tenant only
	tenant1, err := env.store.TenantByID(c.Request().Context(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "Seeded Clinic", tenant1.Name)
	tenant2, err := env.store.TenantByID(c.Request().Context(), "tenant-2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", tenant2.Name)
}

func TestUpdateTenantProfileIgnoresStatusField(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "admin-1", model.RoleAdmin)

	// Status rides along in the payload but only name may change
	c, rec := env.request(http.MethodPut, "/tenant/profile", "admin-1", `{"name":"Renamed","status":"suspended"}`)
	require.NoError(t, UpdateTenantProfile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	tenant, err := env.store.TenantByID(c.Request().Context(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, model.TenantActive, tenant.Status)
}

func TestSetTenantStatusRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "admin-1", model.RoleAdmin)
	env.seedTenantWithMember(t, "tenant-2", "owner-1", model.RoleOwner)

	c, rec := env.request(http.MethodPut, "/tenant/status", "admin-1", `{"status":"inactive"}`)
	require.NoError(t, SetTenantStatus(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = env.request(http.MethodPut, "/tenant/status", "owner-1", `{"status":"inactive"}`)
	require.NoError(t, SetTenantStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	tenant, err := env.store.TenantByID(c.Request().Context(), "tenant-2")
	require.NoError(t, err)
	assert.Equal(t, model.TenantInactive, tenant.Status)
}

func TestSetTenantStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "owner-1", model.RoleOwner)

	c, rec := env.request(http.MethodPut, "/tenant/status", "owner-1", `{"status":"archived"}`)
	require.NoError(t, SetTenantStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetTenantStatusGaugeTracksTransitionsOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "owner-1", model.RoleOwner)

	setStatus := func(status string) {
		t.Helper()
		c, rec := env.request(http.MethodPut, "/tenant/status", "owner-1", `{"status":"`+status+`"}`)
		require.NoError(t, SetTenantStatus(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	base := testutil.ToFloat64(prometheus.ActiveTenantsGauge)

	setStatus("inactive")
	assert.Equal(t, base-1, testutil.ToFloat64(prometheus.ActiveTenantsGauge))

	// Moving between the two non-active states never touches the gauge
	setStatus("suspended")
	assert.Equal(t, base-1, testutil.ToFloat64(prometheus.ActiveTenantsGauge))

	setStatus("active")
	assert.Equal(t, base, testutil.ToFloat64(prometheus.ActiveTenantsGauge))

	// Repeating the current status is a no-op
	setStatus("active")
	assert.Equal(t, base, testutil.ToFloat64(prometheus.ActiveTenantsGauge))
}

func TestRemoveUserLastOwnerBlocked(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "owner-1", model.RoleOwner)

	c, rec := env.request(http.MethodDelete, "/tenant/users/owner-1", "owner-1", "")
	c.SetParamNames("user_id")
	c.SetParamValues("owner-1")
	require.NoError(t, RemoveUser(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInviteAndRemoveUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "admin-1", model.RoleAdmin)

	c, rec := env.request(http.MethodPost, "/tenant/users", "admin-1", `{"user_id":"agent-1","role":"agent"}`)
	require.NoError(t, InviteUser(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = env.request(http.MethodGet, "/tenant/users", "admin-1", "")
	require.NoError(t, ListTenantUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["users"], 2)

	c, rec = env.request(http.MethodDelete, "/tenant/users/agent-1", "admin-1", "")
	c.SetParamNames("user_id")
	c.SetParamValues("agent-1")
	require.NoError(t, RemoveUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInviteUserRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "admin-1", model.RoleAdmin)

	c, rec := env.request(http.MethodPost, "/tenant/users", "admin-1", `{"user_id":"x","role":"superuser"}`)
	require.NoError(t, InviteUser(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrationSecretRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "admin-1", model.RoleAdmin)

	c, rec := env.request(http.MethodPut, "/tenant/integrations/stripe/credentials", "admin-1", `{"credential":"sk_live_abc123"}`)
	c.SetParamNames("type")
	c.SetParamValues("stripe")
	require.NoError(t, RotateIntegrationSecret(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = env.request(http.MethodGet, "/tenant/integrations/stripe/credentials", "admin-1", "")
	c.SetParamNames("type")
	c.SetParamValues("stripe")
	require.NoError(t, GetIntegrationSecret(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	decoded, err := base64.StdEncoding.DecodeString(body["credential"].(string))
	require.NoError(t, err)
	assert.Equal(t, "sk_live_abc123", string(decoded))
}

func TestIntegrationSecretRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "agent-1", model.RoleAgent)

	c, rec := env.request(http.MethodGet, "/tenant/integrations/stripe/credentials", "agent-1", "")
	c.SetParamNames("type")
	c.SetParamValues("stripe")
	require.NoError(t, GetIntegrationSecret(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIntegrationSecretUnreadableCiphertext(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "admin-1", model.RoleAdmin)

	// A ciphertext sealed for another tenant, as if rows were swapped in storage
	other, err := vault.New("handler-test-master-key")
	require.NoError(t, err)
	stolen, err := other.Seal("tenant-2", "stripe", []byte("sk_live_abc123"))
	require.NoError(t, err)
	require.NoError(t, env.store.UpsertSecret(context.Background(), &model.IntegrationSecret{
		TenantID:        "tenant-1",
		IntegrationType: "stripe",
		Ciphertext:      stolen,
	}))

	c, rec := env.request(http.MethodGet, "/tenant/integrations/stripe/credentials", "admin-1", "")
	c.SetParamNames("type")
	c.SetParamValues("stripe")
	require.NoError(t, GetIntegrationSecret(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk_live_abc123")
}

func TestInboundCallRoutesToTenant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := &model.Tenant{Name: "Northside Dental"}
	require.NoError(t, env.store.CreateTenantWithOwner(ctx, tenant, "owner-1", model.DefaultAgentConfig("")))
	_, err := env.store.AssignRoute(ctx, tenant.ID, "+14165551234")
	require.NoError(t, err)

	c, rec := env.request(http.MethodPost, "/webhook/call", "", `{"to":"+1 (416) 555-1234","from":"+15145550000","call_id":"CA123"}`)
	require.NoError(t, InboundCall(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, tenant.ID, body["tenant_id"])
	cfg := body["agent_config"].(map[string]any)
	assert.Equal(t, "professional", cfg["tone"])
}

func TestInboundCallUnknownDestination(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPost, "/webhook/call", "", `{"to":"+14165551234"}`)
	require.NoError(t, InboundCall(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInboundCallSuspendedTenant(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedTenant(model.Tenant{ID: "tenant-1", Status: model.TenantSuspended})
	_, err := env.store.AssignRoute(context.Background(), "tenant-1", "+14165551234")
	require.NoError(t, err)

	c, rec := env.request(http.MethodPost, "/webhook/call", "", `{"to":"+14165551234"}`)
	require.NoError(t, InboundCall(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeniedRequestsAreAudited(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenantWithMember(t, "tenant-1", "viewer-1", model.RoleViewer)

	c, _ := env.request(http.MethodPut, "/tenant/profile", "viewer-1", `{"name":"Renamed"}`)
	require.NoError(t, UpdateTenantProfile(c))

	records := env.sink.Records()
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, "deny", last.Decision)
	assert.Equal(t, "insufficient_role", last.Reason)
	assert.Equal(t, "viewer-1", last.Principal)
}
