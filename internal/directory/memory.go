package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tenant-service/internal/model"
)

// MemoryStore is an in-memory Store for tests and local development wiring.
// It enforces the same uniqueness rules as the database indexes: one
// membership per principal and one active route per number.
type MemoryStore struct {
	mu sync.Mutex

	tenants     map[string]model.Tenant
	memberships []model.Membership
	routes      []model.PhoneRoute
	configs     map[string]model.AgentConfig
	packs       []model.AgentPack
	secrets     map[string]model.IntegrationSecret // keyed tenantID + "|" + integrationType

	nextID uint

	// CreateMembershipHook, when set, runs inside CreateTenantWithOwner after
	// the tenant is staged and before the membership is. A returned error
	// aborts the whole operation. Test seam for atomicity checks.
	CreateMembershipHook func(m *model.Membership) error
}

// NewMemoryStore creates an empty in-memory directory
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: map[string]model.Tenant{},
		configs: map[string]model.AgentConfig{},
		secrets: map[string]model.IntegrationSecret{},
	}
}

func (s *MemoryStore) nextRecordID() uint {
	s.nextID++
	return s.nextID
}

func secretKey(tenantID, integrationType string) string {
	return tenantID + "|" + integrationType
}

// SeedTenant inserts a tenant directly, bypassing onboarding. Test helper.
func (s *MemoryStore) SeedTenant(tenant model.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.Status == "" {
		tenant.Status = model.TenantActive
	}
	s.tenants[tenant.ID] = tenant
}

// SeedMembership inserts a membership directly, bypassing uniqueness checks.
// Test helper for constructing invariant-violation states.
func (s *MemoryStore) SeedMembership(m model.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextRecordID()
	s.memberships = append(s.memberships, m)
}

// SeedAgentPack inserts a shared agent template. Test helper.
func (s *MemoryStore) SeedAgentPack(p model.AgentPack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextRecordID()
	s.packs = append(s.packs, p)
}

// TenantByID returns the tenant with the given id
func (s *MemoryStore) TenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tenant, nil
}

// UpdateTenant applies the non-nil fields of the update
func (s *MemoryStore) UpdateTenant(ctx context.Context, id string, update model.TenantUpdate) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Name != nil {
		tenant.Name = *update.Name
	}
	if update.Timezone != nil {
		tenant.Timezone = *update.Timezone
	}
	if update.Industry != nil {
		tenant.Industry = *update.Industry
	}
	if update.DefaultEmailRecipients != nil {
		tenant.DefaultEmailRecipients = *update.DefaultEmailRecipients
	}
	if update.Status != nil {
		tenant.Status = *update.Status
	}
	tenant.UpdatedAt = time.Now()
	s.tenants[id] = tenant
	return &tenant, nil
}

// CreateTenantWithOwner stages tenant, membership and config, then commits
// them together. Nothing becomes visible on failure.
func (s *MemoryStore) CreateTenantWithOwner(ctx context.Context, tenant *model.Tenant, principalID string, cfg *model.AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.memberships {
		if m.PrincipalID == principalID {
			return ErrDuplicateMembership
		}
	}

	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.Status == "" {
		tenant.Status = model.TenantActive
	}
	tenant.CreatedAt = time.Now()

	membership := model.Membership{
		ID:          s.nextRecordID(),
		PrincipalID: principalID,
		TenantID:    tenant.ID,
		Role:        model.RoleOwner,
		CreatedAt:   tenant.CreatedAt,
	}

	if s.CreateMembershipHook != nil {
		if err := s.CreateMembershipHook(&membership); err != nil {
			// Abort before anything was published
			return err
		}
	}

	cfg.TenantID = tenant.ID

	s.tenants[tenant.ID] = *tenant
	s.memberships = append(s.memberships, membership)
	s.configs[tenant.ID] = *cfg
	return nil
}

// MembershipsByPrincipal returns all memberships held by the principal
func (s *MemoryStore) MembershipsByPrincipal(ctx context.Context, principalID string) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Membership
	for _, m := range s.memberships {
		if m.PrincipalID == principalID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MembersByTenant returns all memberships of the tenant
func (s *MemoryStore) MembersByTenant(ctx context.Context, tenantID string) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Membership
	for _, m := range s.memberships {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddMembership creates a membership unless the principal already has one
func (s *MemoryStore) AddMembership(ctx context.Context, m *model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.memberships {
		if existing.PrincipalID == m.PrincipalID {
			return ErrDuplicateMembership
		}
	}

	m.ID = s.nextRecordID()
	m.CreatedAt = time.Now()
	s.memberships = append(s.memberships, *m)
	return nil
}

// RemoveMembership deletes the membership, refusing to remove the last owner
func (s *MemoryStore) RemoveMembership(ctx context.Context, tenantID, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	owners := 0
	for i, m := range s.memberships {
		if m.TenantID != tenantID {
			continue
		}
		if m.Role == model.RoleOwner {
			owners++
		}
		if m.PrincipalID == principalID {
			idx = i
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	if s.memberships[idx].Role == model.RoleOwner && owners <= 1 {
		return ErrLastOwner
	}

	s.memberships = append(s.memberships[:idx], s.memberships[idx+1:]...)
	return nil
}

// ActiveRouteByNumber returns the single active route for the number
func (s *MemoryStore) ActiveRouteByNumber(ctx context.Context, number string) (*model.PhoneRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.routes {
		if r.Number == number && r.Active {
			route := r
			return &route, nil
		}
	}
	return nil, ErrNotFound
}

// RoutesByTenant returns all routes owned by the tenant
func (s *MemoryStore) RoutesByTenant(ctx context.Context, tenantID string) ([]model.PhoneRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.PhoneRoute
	for _, r := range s.routes {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

// AssignRoute creates an active route unless one already exists for the number
func (s *MemoryStore) AssignRoute(ctx context.Context, tenantID, number string) (*model.PhoneRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.routes {
		if r.Number == number && r.Active {
			return nil, ErrRouteConflict
		}
	}

	route := model.PhoneRoute{
		ID:        s.nextRecordID(),
		Number:    number,
		TenantID:  tenantID,
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.routes = append(s.routes, route)
	return &route, nil
}

// DeactivateRoute marks the tenant's active route for the number inactive
func (s *MemoryStore) DeactivateRoute(ctx context.Context, tenantID, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.routes {
		if r.TenantID == tenantID && r.Number == number && r.Active {
			s.routes[i].Active = false
			s.routes[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// AgentConfigByTenant returns the tenant's agent configuration
func (s *MemoryStore) AgentConfigByTenant(ctx context.Context, tenantID string) (*model.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

// UpdateAgentConfig applies the non-nil fields of the update
func (s *MemoryStore) UpdateAgentConfig(ctx context.Context, tenantID string, update model.AgentConfigUpdate) (*model.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Greeting != nil {
		cfg.Greeting = *update.Greeting
	}
	if update.Tone != nil {
		cfg.Tone = *update.Tone
	}
	if update.BusinessHours != nil {
		cfg.BusinessHours = *update.BusinessHours
	}
	if update.EscalationRules != nil {
		cfg.EscalationRules = *update.EscalationRules
	}
	if update.AllowedActions != nil {
		cfg.AllowedActions = *update.AllowedActions
	}
	if update.CustomPrompts != nil {
		cfg.CustomPrompts = *update.CustomPrompts
	}
	if update.StoreTranscripts != nil {
		cfg.StoreTranscripts = *update.StoreTranscripts
	}
	if update.StoreRecordings != nil {
		cfg.StoreRecordings = *update.StoreRecordings
	}
	if update.RetentionDays != nil {
		cfg.RetentionDays = *update.RetentionDays
	}
	cfg.UpdatedAt = time.Now()
	s.configs[tenantID] = cfg
	return &cfg, nil
}

// AgentPacks returns all shared agent templates
func (s *MemoryStore) AgentPacks(ctx context.Context) ([]model.AgentPack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AgentPack, len(s.packs))
	copy(out, s.packs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpsertSecret inserts or replaces the sealed secret for the pair
func (s *MemoryStore) UpsertSecret(ctx context.Context, rec *model.IntegrationSecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := secretKey(rec.TenantID, rec.IntegrationType)
	if existing, ok := s.secrets[key]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.ID = s.nextRecordID()
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = time.Now()
	s.secrets[key] = *rec
	return nil
}

// SecretByTenantAndType returns the sealed secret for the pair
func (s *MemoryStore) SecretByTenantAndType(ctx context.Context, tenantID, integrationType string) (*model.IntegrationSecret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.secrets[secretKey(tenantID, integrationType)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}
