package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/internal/directory"
	"tenant-service/internal/model"
)

func TestOnboardProvisionsTenantOwnerAndConfig(t *testing.T) {
	ctx := context.Background()
	store := directory.NewMemoryStore()
	c := New(store)

	tenant, err := c.Onboard(ctx, "user-1", TenantAttributes{
		Name:                   "  Northside Dental  ",
		Industry:               "dental",
		DefaultEmailRecipients: []string{"front@northside.example", "back@northside.example"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tenant.ID)

	assert.Equal(t, "Northside Dental", tenant.Name)
	assert.Equal(t, "America/Toronto", tenant.Timezone, "missing timezone gets the default")
	assert.Equal(t, model.TenantActive, tenant.Status)
	assert.Equal(t, "front@northside.example,back@northside.example", tenant.DefaultEmailRecipients)

	memberships, err := store.MembershipsByPrincipal(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, tenant.ID, memberships[0].TenantID)
	assert.Equal(t, model.RoleOwner, memberships[0].Role)

	cfg, err := store.AgentConfigByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "professional", cfg.Tone)
	assert.True(t, cfg.StoreTranscripts)
	assert.Equal(t, 90, cfg.RetentionDays)
}

func TestOnboardKeepsExplicitTimezone(t *testing.T) {
	store := directory.NewMemoryStore()
	c := New(store)

	tenant, err := c.Onboard(context.Background(), "user-1", TenantAttributes{
		Name:     "Harbour Clinic",
		Timezone: "Europe/London",
	})
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", tenant.Timezone)
}

func TestOnboardRejectsInvalidAttributes(t *testing.T) {
	c := New(directory.NewMemoryStore())

	_, err := c.Onboard(context.Background(), "", TenantAttributes{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidAttributes)

	_, err = c.Onboard(context.Background(), "user-1", TenantAttributes{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidAttributes)
}

func TestOnboardDuplicatePrincipal(t *testing.T) {
	ctx := context.Background()
	store := directory.NewMemoryStore()
	c := New(store)

	_, err := c.Onboard(ctx, "user-1", TenantAttributes{Name: "First Clinic"})
	require.NoError(t, err)

	_, err = c.Onboard(ctx, "user-1", TenantAttributes{Name: "Second Clinic"})
	assert.ErrorIs(t, err, ErrDuplicateOnboarding)

	memberships, err := store.MembershipsByPrincipal(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, memberships, 1)
}

func TestOnboardRollsBackOnMembershipFailure(t *testing.T) {
	ctx := context.Background()
	store := directory.NewMemoryStore()
	store.CreateMembershipHook = func(m *model.Membership) error {
		return errors.New("simulated storage failure")
	}
	c := New(store)

	_, err := c.Onboard(ctx, "user-1", TenantAttributes{Name: "Doomed Clinic"})
	require.Error(t, err)

	// Nothing may be visible after the failure: no half-created tenant
	memberships, err := store.MembershipsByPrincipal(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, memberships)
}

func TestOnboardConcurrentSamePrincipal(t *testing.T) {
	ctx := context.Background()
	store := directory.NewMemoryStore()
	c := New(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Onboard(ctx, "user-1", TenantAttributes{Name: "Racing Clinic"})
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateOnboarding):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one onboarding wins")
	assert.Equal(t, 1, duplicates)

	memberships, err := store.MembershipsByPrincipal(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, memberships, 1)
}
