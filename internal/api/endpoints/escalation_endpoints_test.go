package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/middleware"
	"support-hub-backend/internal/dto"
	internaljwt "support-hub-backend/internal/jwt"
	"support-hub-backend/internal/model"
	"support-hub-backend/internal/queue"
	agentservice "support-hub-backend/internal/service/agent"
	"support-hub-backend/internal/service/assignment"
	escalationservice "support-hub-backend/internal/service/escalation"
	"support-hub-backend/internal/service/notification"
)

type escalationTestRepository struct {
	mu            sync.Mutex
	tenants       map[string]model.TenantItem
	conversations map[string]model.ConversationItem
	handoffs      map[string][]model.HandoffItem
}

func newEscalationTestRepository() *escalationTestRepository {
	return &escalationTestRepository{
		tenants:       make(map[string]model.TenantItem),
		conversations: make(map[string]model.ConversationItem),
		handoffs:      make(map[string][]model.HandoffItem),
	}
}

func (m *escalationTestRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, escalationservice.ErrNotFound
	}
	return tenant, nil
}

func (m *escalationTestRepository) GetConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[model.ConversationPK(tenantID, conversationID)]
	if !ok {
		return model.ConversationItem{}, escalationservice.ErrNotFound
	}
	return conversation, nil
}

func (m *escalationTestRepository) GetConversationByCustomerRef(ctx context.Context, tenantID, customerRef string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conversation := range m.conversations {
		if conversation.TenantID == tenantID && conversation.CustomerRef == customerRef {
			return conversation, nil
		}
	}
	return model.ConversationItem{}, escalationservice.ErrNotFound
}

func (m *escalationTestRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.PK] = conversation
	return nil
}

func (m *escalationTestRepository) UpdateConversationState(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.PK] = conversation
	return nil
}

func (m *escalationTestRepository) CreateHandoff(ctx context.Context, handoff model.HandoffItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handoffs[handoff.ConversationID] = append(m.handoffs[handoff.ConversationID], handoff)
	return nil
}

func (m *escalationTestRepository) LatestHandoff(ctx context.Context, conversationID string) (model.HandoffItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.handoffs[conversationID]
	if len(records) == 0 {
		return model.HandoffItem{}, escalationservice.ErrNotFound
	}
	return records[len(records)-1], nil
}

func (m *escalationTestRepository) UpdateHandoff(ctx context.Context, conversationID, handoffID string, status model.HandoffStatus, at, toAgentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.handoffs[conversationID]
	for i, record := range records {
		if record.HandoffID == handoffID {
			record.Status = status
			if toAgentID != "" {
				record.ToAgentID = toAgentID
			}
			records[i] = record
			return nil
		}
	}
	return escalationservice.ErrNotFound
}

type assignmentTestRepository struct {
	mu     sync.Mutex
	agents map[string]model.AgentItem
}

func newAssignmentTestRepository() *assignmentTestRepository {
	return &assignmentTestRepository{agents: make(map[string]model.AgentItem)}
}

func (m *assignmentTestRepository) put(agent model.AgentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[model.AgentPK(agent.TenantID, agent.AgentID)] = agent
}

func (m *assignmentTestRepository) get(tenantID, agentID string) model.AgentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agents[model.AgentPK(tenantID, agentID)]
}

func (m *assignmentTestRepository) ListAvailableAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AgentItem, 0)
	for _, agent := range m.agents {
		if agent.TenantID == tenantID && agent.Status == model.AgentStatusAvailable {
			out = append(out, agent)
		}
	}
	return out, nil
}

func (m *assignmentTestRepository) GetAgent(ctx context.Context, tenantID, agentID string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[model.AgentPK(tenantID, agentID)]
	if !ok {
		return model.AgentItem{}, assignment.ErrNotFound
	}
	return agent, nil
}

func (m *assignmentTestRepository) ReserveAgentSlot(ctx context.Context, tenantID, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := model.AgentPK(tenantID, agentID)
	agent, ok := m.agents[pk]
	if !ok {
		return assignment.ErrNotFound
	}
	if !agent.CanTakeConversation() {
		return assignment.ErrSlotUnavailable
	}
	agent.ActiveCount++
	m.agents[pk] = agent
	return nil
}

func (m *assignmentTestRepository) ReleaseAgentSlot(ctx context.Context, tenantID, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := model.AgentPK(tenantID, agentID)
	agent, ok := m.agents[pk]
	if !ok {
		return assignment.ErrNotFound
	}
	if agent.ActiveCount > 0 {
		agent.ActiveCount--
	}
	m.agents[pk] = agent
	return nil
}

type fixedRouting struct{}

func (fixedRouting) Routing(ctx context.Context, tenantID string) (assignment.Routing, error) {
	return assignment.Routing{Strategy: assignment.StrategyRoundRobin, Enabled: true}, nil
}

type roomRecorder struct {
	mu     sync.Mutex
	events map[string][]notification.Event
}

func newRoomRecorder() *roomRecorder {
	return &roomRecorder{events: make(map[string][]notification.Event)}
}

func (r *roomRecorder) Publish(roomID string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event, ok := payload.(notification.Event); ok {
		r.events[roomID] = append(r.events[roomID], event)
	}
	return nil
}

func (r *roomRecorder) eventTypes(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events[roomID]))
	for _, event := range r.events[roomID] {
		out = append(out, event.Type)
	}
	return out
}

type agentDirectory struct {
	repo *assignmentTestRepository
}

func (d agentDirectory) ListAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
	return d.repo.ListAvailableAgents(ctx, tenantID)
}

func (d agentDirectory) GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error) {
	return model.DefaultNotificationPreferences(tenantID, agentID), nil
}

type fixedIdentity struct {
	identity agentservice.Identity
}

func (f fixedIdentity) IdentityFromAuthorizationHeader(header string) (agentservice.Identity, error) {
	return f.identity, nil
}

type escalationTestEnv struct {
	repo     *escalationTestRepository
	agents   *assignmentTestRepository
	recorder *roomRecorder
	handler  http.Handler
	cleanup  func()
}

func escalationFixedTime() time.Time {
	return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
}

func setupEscalationHandler(t *testing.T) *escalationTestEnv {
	t.Helper()

	internaljwt.RoleSecrets[internaljwt.RoleAgent] = "test-secret"

	repo := newEscalationTestRepository()
	repo.tenants["tenant-1"] = model.TenantItem{TenantID: "tenant-1", Name: "Acme", Plan: "starter"}

	agents := newAssignmentTestRepository()
	recorder := newRoomRecorder()

	escalations := escalationservice.NewWithRepository(repo, escalationFixedTime)
	engine := assignment.NewEngine(agents, fixedRouting{}, escalations, nil)
	fanout := notification.NewWithClock(recorder, agentDirectory{repo: agents}, agentDirectory{repo: agents}, escalationFixedTime)
	identities := fixedIdentity{identity: agentservice.Identity{AgentID: "agent-1", TenantID: "tenant-1"}}

	escalationEndpoints := NewEscalationEndpoints(escalations, engine, fanout, identities, "/api/v1")

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0", queueManager, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/escalations", server.MakeHTTPHandleFunc(escalationEndpoints.Escalations))
	mux.HandleFunc("/api/v1/conversations/", server.MakeHTTPHandleFunc(escalationEndpoints.Conversations, middleware.ValidateAgentJWT))

	return &escalationTestEnv{
		repo:     repo,
		agents:   agents,
		recorder: recorder,
		handler:  mux,
		cleanup:  queueManager.Shutdown,
	}
}

func agentBearer(t *testing.T) string {
	t.Helper()
	token, err := internaljwt.CreateToken(internaljwt.Agent{
		Id:       "agent-1",
		TenantID: "tenant-1",
		Email:    "agent@example.com",
	}, internaljwt.RoleAgent, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return "Bearer " + token
}

func availableTestAgent(id string) model.AgentItem {
	return model.AgentItem{
		PK:            model.AgentPK("tenant-1", id),
		TenantID:      "tenant-1",
		AgentID:       id,
		Name:          "Agent " + id,
		Status:        model.AgentStatusAvailable,
		MaxConcurrent: 2,
	}
}

func postEscalation(t *testing.T, env *escalationTestEnv, customerRef string) dto.EscalationResponse {
	t.Helper()

	payload, _ := json.Marshal(dto.EscalationRequest{
		TenantID:    "tenant-1",
		CustomerRef: customerRef,
		Reason:      "needs a human",
		Priority:    2,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/escalations", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		t.Fatalf("escalation request failed with %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.EscalationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode escalation response: %v", err)
	}
	return resp
}

func TestEscalationEndpointAutoAssignsAvailableAgent(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	env.agents.put(availableTestAgent("agent-1"))

	resp := postEscalation(t, env, "customer-1")

	if resp.Assignment == nil || !resp.Assignment.Assigned {
		t.Fatalf("expected auto-assignment, got %+v", resp.Assignment)
	}
	if resp.Conversation.Mode != string(model.ConversationModeHuman) {
		t.Fatalf("expected human mode, got %s", resp.Conversation.Mode)
	}
	if resp.Conversation.CurrentAgentID != "agent-1" {
		t.Fatalf("expected agent-1 assigned, got %s", resp.Conversation.CurrentAgentID)
	}
	if env.agents.get("tenant-1", "agent-1").ActiveCount != 1 {
		t.Fatalf("expected agent slot reserved")
	}

	types := env.recorder.eventTypes("agents:tenant-1")
	if len(types) < 2 || types[0] != notification.EventEscalationRaised || types[1] != notification.EventConversationAssign {
		t.Fatalf("unexpected broadcast events: %v", types)
	}
}

func TestEscalationEndpointStaysEscalatedWithoutAgents(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	resp := postEscalation(t, env, "customer-2")

	if resp.Assignment == nil || !resp.Assignment.NoAvailableAgents {
		t.Fatalf("expected no-available-agents outcome, got %+v", resp.Assignment)
	}
	if resp.Conversation.Mode != string(model.ConversationModeEscalating) {
		t.Fatalf("expected escalating mode, got %s", resp.Conversation.Mode)
	}
}

func TestEscalationEndpointRepeatReturnsExistingState(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	first := postEscalation(t, env, "customer-3")
	second := postEscalation(t, env, "customer-3")

	if !second.AlreadyEscalated {
		t.Fatal("expected repeat escalation to report existing state")
	}
	if second.Conversation.ConversationID != first.Conversation.ConversationID {
		t.Fatal("expected the same conversation on repeat escalation")
	}
}

func TestCompleteEndpointReleasesAgentAndBroadcasts(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	env.agents.put(availableTestAgent("agent-1"))
	resp := postEscalation(t, env, "customer-4")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+resp.Conversation.ConversationID+"/complete", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", agentBearer(t))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var completed dto.ConversationResponse
	if err := json.NewDecoder(rec.Body).Decode(&completed); err != nil {
		t.Fatalf("decode complete response: %v", err)
	}
	if completed.Status != string(model.ConversationStatusCompleted) {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
	if env.agents.get("tenant-1", "agent-1").ActiveCount != 0 {
		t.Fatalf("expected agent slot released on completion")
	}

	types := env.recorder.eventTypes("agents:tenant-1")
	if len(types) == 0 || types[len(types)-1] != notification.EventConversationDone {
		t.Fatalf("expected completion broadcast last, got %v", types)
	}
}

func TestAssignEndpointConflictsWhenAgentIsFull(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	full := availableTestAgent("agent-1")
	full.ActiveCount = full.MaxConcurrent
	env.agents.put(full)

	resp := postEscalation(t, env, "customer-5")
	if resp.Conversation.Mode != string(model.ConversationModeEscalating) {
		t.Fatalf("expected conversation to stay escalating, got %s", resp.Conversation.Mode)
	}

	payload, _ := json.Marshal(dto.AssignAgentRequest{AgentID: "agent-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+resp.Conversation.ConversationID+"/assign", bytes.NewReader(payload))
	req.Header.Set("Authorization", agentBearer(t))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAssignEndpointTransferNotifiesPreviousAgent(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	env.agents.put(availableTestAgent("agent-1"))
	env.agents.put(availableTestAgent("agent-2"))

	resp := postEscalation(t, env, "customer-7")
	if resp.Assignment == nil || resp.Assignment.AgentID != "agent-1" {
		t.Fatalf("expected agent-1 auto-assigned first, got %+v", resp.Assignment)
	}

	payload, _ := json.Marshal(dto.AssignAgentRequest{AgentID: "agent-2"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+resp.Conversation.ConversationID+"/assign", bytes.NewReader(payload))
	req.Header.Set("Authorization", agentBearer(t))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.agents.get("tenant-1", "agent-1").ActiveCount != 0 {
		t.Fatalf("expected previous agent released on transfer")
	}
	if env.agents.get("tenant-1", "agent-2").ActiveCount != 1 {
		t.Fatalf("expected new agent to hold the conversation")
	}

	env.recorder.mu.Lock()
	events := env.recorder.events["agent:tenant-1:agent-1"]
	env.recorder.mu.Unlock()

	found := false
	for _, event := range events {
		if event.Type == notification.EventConversationAssign && event.AgentID == "agent-2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("previous agent heard nothing about losing the conversation: %+v", events)
	}
}

func TestConversationActionRequiresToken(t *testing.T) {
	env := setupEscalationHandler(t)
	defer env.cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/conv-1/complete", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}
