package escalation

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"support-hub-backend/internal/model"
)

type memoryRepository struct {
	mu            sync.Mutex
	tenants       map[string]model.TenantItem
	conversations map[string]model.ConversationItem
	handoffs      map[string][]model.HandoffItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		tenants:       make(map[string]model.TenantItem),
		conversations: make(map[string]model.ConversationItem),
		handoffs:      make(map[string][]model.HandoffItem),
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

func (m *memoryRepository) GetConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[model.ConversationPK(tenantID, conversationID)]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conversation, nil
}

func (m *memoryRepository) GetConversationByCustomerRef(ctx context.Context, tenantID, customerRef string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := make([]model.ConversationItem, 0)
	for _, c := range m.conversations {
		if c.TenantID == tenantID && c.CustomerRef == customerRef {
			matches = append(matches, c)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt > matches[j].CreatedAt
	})
	for _, c := range matches {
		if c.Status != model.ConversationStatusCompleted {
			return c, nil
		}
	}
	if len(matches) > 0 {
		return matches[0], nil
	}
	return model.ConversationItem{}, ErrNotFound
}

func (m *memoryRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.PK] = conversation
	return nil
}

func (m *memoryRepository) UpdateConversationState(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.PK] = conversation
	return nil
}

func (m *memoryRepository) CreateHandoff(ctx context.Context, handoff model.HandoffItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handoffs[handoff.ConversationID] = append(m.handoffs[handoff.ConversationID], handoff)
	return nil
}

func (m *memoryRepository) LatestHandoff(ctx context.Context, conversationID string) (model.HandoffItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handoffs := m.handoffs[conversationID]
	if len(handoffs) == 0 {
		return model.HandoffItem{}, ErrNotFound
	}
	latest := handoffs[0]
	for _, h := range handoffs[1:] {
		if h.InitiatedAt >= latest.InitiatedAt {
			latest = h
		}
	}
	return latest, nil
}

func (m *memoryRepository) UpdateHandoff(ctx context.Context, conversationID, handoffID string, status model.HandoffStatus, at, toAgentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	handoffs := m.handoffs[conversationID]
	for i, h := range handoffs {
		if h.HandoffID != handoffID {
			continue
		}
		h.Status = status
		switch status {
		case model.HandoffStatusAccepted:
			h.AcceptedAt = at
		case model.HandoffStatusCompleted, model.HandoffStatusFailed:
			h.CompletedAt = at
		}
		if toAgentID != "" {
			h.ToAgentID = toAgentID
		}
		handoffs[i] = h
		return nil
	}
	return ErrNotFound
}

func newTestService(t *testing.T) (*Service, *memoryRepository, *time.Time) {
	t.Helper()
	repo := newMemoryRepository()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := NewWithRepository(repo, func() time.Time { return now })
	repo.tenants["tenant-1"] = model.TenantItem{TenantID: "tenant-1"}
	return svc, repo, &now
}

func assertModeAgentInvariant(t *testing.T, conversation model.ConversationItem) {
	t.Helper()
	if conversation.Mode == model.ConversationModeHuman && conversation.CurrentAgentID == "" {
		t.Fatal("human mode requires a current agent")
	}
	if conversation.Mode == model.ConversationModeBot && conversation.CurrentAgentID != "" {
		t.Fatal("bot mode must not keep a current agent")
	}
}

func TestEscalateCreatesConversationAndHandoff(t *testing.T) {
	svc, repo, _ := newTestService(t)

	result, err := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
		Reason:      "billing",
		Priority:    1,
	})
	if err != nil {
		t.Fatalf("Escalate error: %v", err)
	}

	if result.Conversation.Mode != model.ConversationModeEscalating {
		t.Fatalf("expected escalating mode, got %s", result.Conversation.Mode)
	}
	if result.Conversation.EscalatedAt == "" {
		t.Fatal("expected escalatedAt to be set")
	}
	if result.Handoff.Status != model.HandoffStatusPending {
		t.Fatalf("expected pending handoff, got %s", result.Handoff.Status)
	}
	if len(repo.handoffs[result.Conversation.ConversationID]) != 1 {
		t.Fatal("expected exactly one handoff record")
	}
	assertModeAgentInvariant(t, result.Conversation)
}

func TestEscalateIsIdempotent(t *testing.T) {
	svc, repo, now := newTestService(t)

	first, err := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
		Reason:      "billing",
	})
	if err != nil {
		t.Fatalf("first Escalate error: %v", err)
	}

	*now = now.Add(5 * time.Minute)
	second, err := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
		Reason:      "billing again",
	})
	if err != nil {
		t.Fatalf("second Escalate error: %v", err)
	}

	if !second.AlreadyEscalated {
		t.Fatal("expected AlreadyEscalated on repeat call")
	}
	if second.Conversation.ConversationID != first.Conversation.ConversationID {
		t.Fatal("repeat escalate must return the existing conversation")
	}
	if second.Conversation.EscalatedAt != first.Conversation.EscalatedAt {
		t.Fatal("repeat escalate must not change escalatedAt")
	}
	if len(repo.handoffs[first.Conversation.ConversationID]) != 1 {
		t.Fatal("repeat escalate must not create a duplicate handoff")
	}
}

func TestAssignAgentRequiresEscalation(t *testing.T) {
	svc, repo, _ := newTestService(t)

	conversation := model.ConversationItem{
		PK:             model.ConversationPK("tenant-1", "conv-1"),
		ConversationID: "conv-1",
		TenantID:       "tenant-1",
		CustomerRef:    "customer-1",
		Status:         model.ConversationStatusActive,
		Mode:           model.ConversationModeBot,
	}
	repo.conversations[conversation.PK] = conversation

	_, err := svc.AssignAgent(context.Background(), "tenant-1", "conv-1", "agent-1")
	if err == nil {
		t.Fatal("expected error assigning in bot mode")
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if svcErr.Code != ErrorCodeNotEscalated {
		t.Fatalf("expected not_escalated, got %s", svcErr.Code)
	}
}

func TestAssignAgentAcceptsHandoff(t *testing.T) {
	svc, repo, _ := newTestService(t)

	escalated, err := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
		Reason:      "billing",
	})
	if err != nil {
		t.Fatalf("Escalate error: %v", err)
	}

	conversation, err := svc.AssignAgent(context.Background(), "tenant-1", escalated.Conversation.ConversationID, "agent-1")
	if err != nil {
		t.Fatalf("AssignAgent error: %v", err)
	}

	if conversation.Mode != model.ConversationModeHuman {
		t.Fatalf("expected human mode, got %s", conversation.Mode)
	}
	if conversation.CurrentAgentID != "agent-1" {
		t.Fatalf("expected agent-1, got %s", conversation.CurrentAgentID)
	}
	assertModeAgentInvariant(t, conversation)

	handoff := repo.handoffs[conversation.ConversationID][0]
	if handoff.Status != model.HandoffStatusAccepted {
		t.Fatalf("expected accepted handoff, got %s", handoff.Status)
	}
	if handoff.ToAgentID != "agent-1" {
		t.Fatalf("expected handoff target agent-1, got %s", handoff.ToAgentID)
	}
}

func TestAgentTransferAppendsHandoff(t *testing.T) {
	svc, repo, _ := newTestService(t)

	escalated, _ := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
	})
	convID := escalated.Conversation.ConversationID

	if _, err := svc.AssignAgent(context.Background(), "tenant-1", convID, "agent-1"); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := svc.AssignAgent(context.Background(), "tenant-1", convID, "agent-2"); err != nil {
		t.Fatalf("second assign: %v", err)
	}

	handoffs := repo.handoffs[convID]
	if len(handoffs) != 2 {
		t.Fatalf("expected 2 handoff records, got %d", len(handoffs))
	}
	transfer := handoffs[1]
	if transfer.Type != model.HandoffTypeAgentToAgent {
		t.Fatalf("expected agent transfer record, got %s", transfer.Type)
	}
	if transfer.FromAgentID != "agent-1" || transfer.ToAgentID != "agent-2" {
		t.Fatalf("unexpected transfer agents %s -> %s", transfer.FromAgentID, transfer.ToAgentID)
	}
}

func TestHandbackClearsAgent(t *testing.T) {
	svc, repo, _ := newTestService(t)

	escalated, _ := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
	})
	convID := escalated.Conversation.ConversationID
	svc.AssignAgent(context.Background(), "tenant-1", convID, "agent-1")

	conversation, err := svc.Handback(context.Background(), "tenant-1", convID, model.HandoffStatusFailed)
	if err != nil {
		t.Fatalf("Handback error: %v", err)
	}

	if conversation.Mode != model.ConversationModeBot {
		t.Fatalf("expected bot mode, got %s", conversation.Mode)
	}
	if conversation.CurrentAgentID != "" {
		t.Fatal("expected current agent cleared")
	}
	assertModeAgentInvariant(t, conversation)

	handoff := repo.handoffs[convID][0]
	if handoff.Status != model.HandoffStatusFailed {
		t.Fatalf("expected failed handoff, got %s", handoff.Status)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	svc, _, _ := newTestService(t)

	escalated, _ := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
	})
	convID := escalated.Conversation.ConversationID
	svc.AssignAgent(context.Background(), "tenant-1", convID, "agent-1")

	result, err := svc.Complete(context.Background(), "tenant-1", convID, "resolved", "done")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if result.ReleasedAgentID != "agent-1" {
		t.Fatalf("expected released agent-1, got %s", result.ReleasedAgentID)
	}
	if result.Conversation.Status != model.ConversationStatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Conversation.Status)
	}
	assertModeAgentInvariant(t, result.Conversation)

	for name, call := range map[string]func() error{
		"assign": func() error {
			_, err := svc.AssignAgent(context.Background(), "tenant-1", convID, "agent-2")
			return err
		},
		"handback": func() error {
			_, err := svc.Handback(context.Background(), "tenant-1", convID, model.HandoffStatusCompleted)
			return err
		},
		"complete": func() error {
			_, err := svc.Complete(context.Background(), "tenant-1", convID, "resolved", "")
			return err
		},
	} {
		err := call()
		if err == nil {
			t.Fatalf("%s after completion should fail", name)
		}
		svcErr, ok := err.(*Error)
		if !ok {
			t.Fatalf("%s: expected *Error, got %T", name, err)
		}
		if svcErr.Code != ErrorCodeConversationClosed {
			t.Fatalf("%s: expected conversation_closed, got %s", name, svcErr.Code)
		}
	}
}

func TestEscalateCompletedConversationFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	escalated, _ := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
	})
	svc.Complete(context.Background(), "tenant-1", escalated.Conversation.ConversationID, "resolved", "")

	// The completed conversation still matches the customer ref, so a
	// fresh escalate on the same ref is rejected as closed.
	_, err := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
	})
	if err == nil {
		t.Fatal("expected error escalating a closed conversation")
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if svcErr.Code != ErrorCodeConversationClosed {
		t.Fatalf("expected conversation_closed, got %s", svcErr.Code)
	}
}

func TestTouchActivityBumpsCounters(t *testing.T) {
	svc, _, _ := newTestService(t)

	escalated, _ := svc.Escalate(context.Background(), EscalateParams{
		TenantID:    "tenant-1",
		CustomerRef: "customer-42",
	})
	convID := escalated.Conversation.ConversationID

	conversation, err := svc.TouchActivity(context.Background(), "tenant-1", convID)
	if err != nil {
		t.Fatalf("TouchActivity error: %v", err)
	}
	if conversation.MessageCount != 1 {
		t.Fatalf("expected message count 1, got %d", conversation.MessageCount)
	}
}
