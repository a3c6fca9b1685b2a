package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tenant-service/internal/model"
	"tenant-service/prometheus"
)

// GormStore implements Store on a PostgreSQL database through gorm.
//
// Membership and route lookups sit on every request path, so they are served
// from a short-TTL cache. Entries are invalidated on every mutation; the only
// staleness left is the TTL window between a change committed by another
// process and the next expiry. That window bounds how long a role downgrade
// or number reassignment can keep serving the old answer, and is configured
// via DIRECTORY_CACHE_TTL.
type GormStore struct {
	db    *gorm.DB
	cache *gocache.Cache
	ttl   time.Duration
}

// NewGormStore creates a directory store on the given database connection
func NewGormStore(db *gorm.DB, cacheTTL time.Duration) *GormStore {
	return &GormStore{
		db:    db,
		cache: gocache.New(cacheTTL, 2*cacheTTL),
		ttl:   cacheTTL,
	}
}

func membershipCacheKey(principalID string) string {
	return "memberships:" + principalID
}

func routeCacheKey(number string) string {
	return "route:" + number
}

// storageErr wraps unexpected database failures as ErrStorageUnavailable so
// callers can distinguish retryable infrastructure errors from decisions.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// TenantByID returns the tenant with the given id
func (s *GormStore) TenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &tenant, nil
}

// UpdateTenant applies the non-nil fields of the update to the tenant
func (s *GormStore) UpdateTenant(ctx context.Context, id string, update model.TenantUpdate) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	values := map[string]interface{}{}
	if update.Name != nil {
		values["name"] = *update.Name
	}
	if update.Timezone != nil {
		values["timezone"] = *update.Timezone
	}
	if update.Industry != nil {
		values["industry"] = *update.Industry
	}
	if update.DefaultEmailRecipients != nil {
		values["default_email_recipients"] = *update.DefaultEmailRecipients
	}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if len(values) == 0 {
		return s.TenantByID(ctx, id)
	}

	result := s.db.WithContext(ctx).Model(&model.Tenant{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return nil, storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.TenantByID(ctx, id)
}

// CreateTenantWithOwner commits tenant, owner membership and agent config in
// one transaction
func (s *GormStore) CreateTenantWithOwner(ctx context.Context, tenant *model.Tenant, principalID string, cfg *model.AgentConfig) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}

		membership := model.Membership{
			PrincipalID: principalID,
			TenantID:    tenant.ID,
			Role:        model.RoleOwner,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		cfg.TenantID = tenant.ID
		return tx.Create(cfg).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMembership
		}
		return storageErr(err)
	}

	s.cache.Delete(membershipCacheKey(principalID))
	return nil
}

// MembershipsByPrincipal returns all memberships held by the principal
func (s *GormStore) MembershipsByPrincipal(ctx context.Context, principalID string) ([]model.Membership, error) {
	if cached, found := s.cache.Get(membershipCacheKey(principalID)); found {
		return cached.([]model.Membership), nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var memberships []model.Membership
	if err := s.db.WithContext(ctx).Where("principal_id = ?", principalID).Find(&memberships).Error; err != nil {
		return nil, storageErr(err)
	}

	s.cache.Set(membershipCacheKey(principalID), memberships, s.ttl)
	return memberships, nil
}

// MembersByTenant returns all memberships of the tenant
func (s *GormStore) MembersByTenant(ctx context.Context, tenantID string) ([]model.Membership, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var memberships []model.Membership
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&memberships).Error; err != nil {
		return nil, storageErr(err)
	}
	return memberships, nil
}

// AddMembership creates a membership. The unique index on principal_id
// rejects principals that already belong to a tenant.
func (s *GormStore) AddMembership(ctx context.Context, m *model.Membership) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMembership
		}
		return storageErr(err)
	}

	s.cache.Delete(membershipCacheKey(m.PrincipalID))
	return nil
}

// RemoveMembership deletes the membership, refusing to remove the last owner
func (s *GormStore) RemoveMembership(ctx context.Context, tenantID, principalID string) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var membership model.Membership
		if err := tx.Where("tenant_id = ? AND principal_id = ?", tenantID, principalID).First(&membership).Error; err != nil {
			return err
		}

		if membership.Role == model.RoleOwner {
			var owners int64
			if err := tx.Model(&model.Membership{}).
				Where("tenant_id = ? AND role = ?", tenantID, model.RoleOwner).
				Count(&owners).Error; err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}

		return tx.Delete(&membership).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if errors.Is(err, ErrLastOwner) {
			return ErrLastOwner
		}
		return storageErr(err)
	}

	s.cache.Delete(membershipCacheKey(principalID))
	return nil
}

// ActiveRouteByNumber returns the single active route for the number
func (s *GormStore) ActiveRouteByNumber(ctx context.Context, number string) (*model.PhoneRoute, error) {
	if cached, found := s.cache.Get(routeCacheKey(number)); found {
		return cached.(*model.PhoneRoute), nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var route model.PhoneRoute
	if err := s.db.WithContext(ctx).Where("phone_number = ? AND active = ?", number, true).First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}

	s.cache.Set(routeCacheKey(number), &route, s.ttl)
	return &route, nil
}

// RoutesByTenant returns all routes owned by the tenant, active or not
func (s *GormStore) RoutesByTenant(ctx context.Context, tenantID string) ([]model.PhoneRoute, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var routes []model.PhoneRoute
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&routes).Error; err != nil {
		return nil, storageErr(err)
	}
	return routes, nil
}

// AssignRoute creates an active route for the number. The partial unique
// index rejects the insert while another active route exists for it.
func (s *GormStore) AssignRoute(ctx context.Context, tenantID, number string) (*model.PhoneRoute, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	route := model.PhoneRoute{
		Number:   number,
		TenantID: tenantID,
		Active:   true,
	}
	if err := s.db.WithContext(ctx).Create(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRouteConflict
		}
		return nil, storageErr(err)
	}

	s.cache.Delete(routeCacheKey(number))
	return &route, nil
}

// DeactivateRoute marks the tenant's active route for the number inactive
func (s *GormStore) DeactivateRoute(ctx context.Context, tenantID, number string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	result := s.db.WithContext(ctx).Model(&model.PhoneRoute{}).
		Where("tenant_id = ? AND phone_number = ? AND active = ?", tenantID, number, true).
		Update("active", false)
	if result.Error != nil {
		return storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.cache.Delete(routeCacheKey(number))
	return nil
}

// AgentConfigByTenant returns the tenant's agent configuration
func (s *GormStore) AgentConfigByTenant(ctx context.Context, tenantID string) (*model.AgentConfig, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var cfg model.AgentConfig
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &cfg, nil
}

// UpdateAgentConfig applies the non-nil fields of the update
func (s *GormStore) UpdateAgentConfig(ctx context.Context, tenantID string, update model.AgentConfigUpdate) (*model.AgentConfig, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	values := map[string]interface{}{}
	if update.Greeting != nil {
		values["greeting"] = *update.Greeting
	}
	if update.Tone != nil {
		values["tone"] = *update.Tone
	}
	if update.BusinessHours != nil {
		values["business_hours"] = *update.BusinessHours
	}
	if update.EscalationRules != nil {
		values["escalation_rules"] = *update.EscalationRules
	}
	if update.AllowedActions != nil {
		values["allowed_actions"] = *update.AllowedActions
	}
	if update.CustomPrompts != nil {
		values["custom_prompts"] = *update.CustomPrompts
	}
	if update.StoreTranscripts != nil {
		values["store_transcripts"] = *update.StoreTranscripts
	}
	if update.StoreRecordings != nil {
		values["store_recordings"] = *update.StoreRecordings
	}
	if update.RetentionDays != nil {
		values["retention_days"] = *update.RetentionDays
	}
	if len(values) == 0 {
		return s.AgentConfigByTenant(ctx, tenantID)
	}

	result := s.db.WithContext(ctx).Model(&model.AgentConfig{}).Where("tenant_id = ?", tenantID).Updates(values)
	if result.Error != nil {
		return nil, storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.AgentConfigByTenant(ctx, tenantID)
}

// AgentPacks returns all shared agent templates
func (s *GormStore) AgentPacks(ctx context.Context) ([]model.AgentPack, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var packs []model.AgentPack
	if err := s.db.WithContext(ctx).Order("name").Find(&packs).Error; err != nil {
		return nil, storageErr(err)
	}
	return packs, nil
}

// UpsertSecret inserts the sealed secret or replaces the previous ciphertext
// for the same (tenant, integration type) pair in one statement
func (s *GormStore) UpsertSecret(ctx context.Context, rec *model.IntegrationSecret) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "integration_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"ciphertext", "expires_at", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// SecretByTenantAndType returns the sealed secret for the pair
func (s *GormStore) SecretByTenantAndType(ctx context.Context, tenantID, integrationType string) (*model.IntegrationSecret, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var rec model.IntegrationSecret
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND integration_type = ?", tenantID, integrationType).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &rec, nil
}
