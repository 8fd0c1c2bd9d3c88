package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	internaljwt "support-hub-backend/internal/jwt"
	"support-hub-backend/internal/model"
)

type memoryRepository struct {
	mu      sync.Mutex
	tenants map[string]model.TenantItem
	agents  map[string]model.AgentItem
	prefs   map[string]model.NotificationPreferenceItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		tenants: make(map[string]model.TenantItem),
		agents:  make(map[string]model.AgentItem),
		prefs:   make(map[string]model.NotificationPreferenceItem),
	}
}

func (m *memoryRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, nil
}

func (m *memoryRepository) CreateAgent(ctx context.Context, agent model.AgentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent.PK] = agent
	return nil
}

func (m *memoryRepository) GetAgent(ctx context.Context, tenantID, agentID string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[model.AgentPK(tenantID, agentID)]
	if !ok {
		return model.AgentItem{}, ErrNotFound
	}
	return agent, nil
}

func (m *memoryRepository) FindAgentByEmail(ctx context.Context, tenantID, email string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, agent := range m.agents {
		if agent.TenantID == tenantID && agent.Email == email {
			return agent, nil
		}
	}
	return model.AgentItem{}, ErrNotFound
}

func (m *memoryRepository) ListAgentsByTenant(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agents := make([]model.AgentItem, 0)
	for _, agent := range m.agents {
		if agent.TenantID == tenantID {
			agents = append(agents, agent)
		}
	}
	return agents, nil
}

func (m *memoryRepository) UpdateAgentStatus(ctx context.Context, tenantID, agentID string, status model.AgentStatus, updatedAt string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := model.AgentPK(tenantID, agentID)
	agent, ok := m.agents[pk]
	if !ok {
		return model.AgentItem{}, ErrNotFound
	}
	agent.Status = status
	agent.UpdatedAt = updatedAt
	m.agents[pk] = agent
	return agent, nil
}

func (m *memoryRepository) UpdateAgentCapacity(ctx context.Context, tenantID, agentID string, maxConcurrent int, updatedAt string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := model.AgentPK(tenantID, agentID)
	agent, ok := m.agents[pk]
	if !ok {
		return model.AgentItem{}, ErrNotFound
	}
	agent.MaxConcurrent = maxConcurrent
	agent.UpdatedAt = updatedAt
	m.agents[pk] = agent
	return agent, nil
}

func (m *memoryRepository) GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefs, ok := m.prefs[model.AgentPK(tenantID, agentID)]
	if !ok {
		return model.NotificationPreferenceItem{}, ErrNotFound
	}
	return prefs, nil
}

func (m *memoryRepository) PutPreferences(ctx context.Context, prefs model.NotificationPreferenceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[prefs.PK] = prefs
	return nil
}

func setupJWT(t *testing.T) {
	t.Helper()

	original := createTokenWithRefresh
	internaljwt.RoleSecrets[internaljwt.RoleAgent] = "test-secret"
	SetTokenIssuer(func(agent internaljwt.Agent, role internaljwt.Role, validUntil int64) (internaljwt.TokenResponse, error) {
		token, err := internaljwt.CreateToken(agent, role, validUntil)
		if err != nil {
			return internaljwt.TokenResponse{}, err
		}
		return internaljwt.TokenResponse{
			AccessToken: token,
		}, nil
	})

	t.Cleanup(func() {
		SetTokenIssuer(original)
	})
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *memoryRepository) {
	repo := newMemoryRepository()
	repo.tenants["tenant-1"] = model.TenantItem{
		TenantID: "tenant-1",
		Name:     "Acme Support",
		Plan:     "pro",
		Created:  fixedNow().Format(time.RFC3339),
	}
	return NewWithRepository(repo, fixedNow), repo
}

func TestRegisterCreatesOfflineAgentWithDefaults(t *testing.T) {
	setupJWT(t)
	svc, repo := newTestService()

	result, err := svc.Register(context.Background(), RegisterParams{
		TenantID: "tenant-1",
		Name:     "Dana",
		Email:    "Dana@Example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Agent.Status != model.AgentStatusOffline {
		t.Fatalf("new agents should start offline, got %s", result.Agent.Status)
	}
	if result.Agent.MaxConcurrent != defaultMaxConcurrent {
		t.Fatalf("expected default capacity %d, got %d", defaultMaxConcurrent, result.Agent.MaxConcurrent)
	}
	if result.Agent.Email != "dana@example.com" {
		t.Fatalf("email should be normalized, got %s", result.Agent.Email)
	}
	if result.Tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}

	prefs, ok := repo.prefs[result.Agent.PK]
	if !ok {
		t.Fatal("default notification preferences should be stored")
	}
	if !prefs.NotifyOnCritical || !prefs.PushEnabled || prefs.EmailEnabled {
		t.Fatalf("unexpected default preferences: %+v", prefs)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setupJWT(t)
	svc, _ := newTestService()

	params := RegisterParams{
		TenantID: "tenant-1",
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "secret",
	}
	if _, err := svc.Register(context.Background(), params); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), params)
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginValidatesCredentials(t *testing.T) {
	setupJWT(t)
	svc, _ := newTestService()

	if _, err := svc.Register(context.Background(), RegisterParams{
		TenantID: "tenant-1",
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "secret",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := svc.Login(context.Background(), LoginParams{
		TenantID: "tenant-1",
		Email:    "dana@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Agent.Email != "dana@example.com" {
		t.Fatalf("unexpected agent: %+v", result.Agent)
	}

	_, err = svc.Login(context.Background(), LoginParams{
		TenantID: "tenant-1",
		Email:    "dana@example.com",
		Password: "wrong",
	})
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	setupJWT(t)
	svc, _ := newTestService()

	registered, err := svc.Register(context.Background(), RegisterParams{
		TenantID: "tenant-1",
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.SetStatus(context.Background(), "tenant-1", registered.Agent.AgentID, model.AgentStatusAvailable)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != model.AgentStatusAvailable {
		t.Fatalf("expected available, got %s", updated.Status)
	}

	_, err = svc.SetStatus(context.Background(), "tenant-1", registered.Agent.AgentID, model.AgentStatus("napping"))
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPreferencesDefaultWhenNeverSaved(t *testing.T) {
	svc, _ := newTestService()

	prefs, err := svc.GetPreferences(context.Background(), "tenant-1", "agent-unseen")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if !prefs.NotifyOnStandard || !prefs.NotifyOnHigh || !prefs.NotifyOnCritical {
		t.Fatalf("defaults should enable all tiers: %+v", prefs)
	}
	if !prefs.PushEnabled || prefs.AudioEnabled || prefs.EmailEnabled {
		t.Fatalf("defaults should enable push only: %+v", prefs)
	}
}

func TestUpdatePreferencesPartial(t *testing.T) {
	svc, repo := newTestService()

	off := false
	on := true
	prefs, err := svc.UpdatePreferences(context.Background(), "tenant-1", "agent-1", PreferencesInput{
		NotifyOnStandard: &off,
		AudioEnabled:     &on,
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if prefs.NotifyOnStandard {
		t.Fatal("standard tier should be off")
	}
	if !prefs.NotifyOnHigh || !prefs.NotifyOnCritical {
		t.Fatal("untouched tiers keep defaults")
	}
	if !prefs.AudioEnabled || !prefs.PushEnabled {
		t.Fatalf("unexpected channels: %+v", prefs)
	}

	stored, ok := repo.prefs[model.AgentPK("tenant-1", "agent-1")]
	if !ok || stored.NotifyOnStandard {
		t.Fatalf("preferences not persisted: %+v", stored)
	}
}

func TestUpdateCapacity(t *testing.T) {
	setupJWT(t)
	svc, _ := newTestService()

	registered, err := svc.Register(context.Background(), RegisterParams{
		TenantID: "tenant-1",
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.UpdateCapacity(context.Background(), "tenant-1", registered.Agent.AgentID, 7)
	if err != nil {
		t.Fatalf("UpdateCapacity: %v", err)
	}
	if updated.MaxConcurrent != 7 {
		t.Fatalf("expected capacity 7, got %d", updated.MaxConcurrent)
	}

	if _, err := svc.UpdateCapacity(context.Background(), "tenant-1", registered.Agent.AgentID, 0); err == nil {
		t.Fatal("expected validation error for zero capacity")
	}
}
