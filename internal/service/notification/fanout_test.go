package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"support-hub-backend/internal/model"
	"support-hub-backend/internal/websocket"
)

type recordingPublisher struct {
	mu       sync.Mutex
	events   map[string][]Event
	failRoom string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[string][]Event)}
}

func (p *recordingPublisher) Publish(roomID string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failRoom != "" && roomID == p.failRoom {
		return errors.New("publish failed")
	}
	event, ok := payload.(Event)
	if !ok {
		return errors.New("unexpected payload type")
	}
	p.events[roomID] = append(p.events[roomID], event)
	return nil
}

func (p *recordingPublisher) roomEvents(roomID string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[roomID]
}

type stubDirectory struct {
	agents []model.AgentItem
	prefs  map[string]model.NotificationPreferenceItem
}

func (s *stubDirectory) ListAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
	return s.agents, nil
}

func (s *stubDirectory) GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error) {
	prefs, ok := s.prefs[agentID]
	if !ok {
		return model.DefaultNotificationPreferences(tenantID, agentID), nil
	}
	return prefs, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

func escalatedConversation(priority int) model.ConversationItem {
	return model.ConversationItem{
		ConversationID: "conv-1",
		TenantID:       "tenant-1",
		CustomerRef:    "cust-42",
		Status:         model.ConversationStatusActive,
		Mode:           model.ConversationModeEscalating,
		Priority:       priority,
	}
}

func TestNotifyEscalationBroadcastsAndTargets(t *testing.T) {
	publisher := newRecordingPublisher()
	directory := &stubDirectory{
		agents: []model.AgentItem{
			{TenantID: "tenant-1", AgentID: "agent-a"},
			{TenantID: "tenant-1", AgentID: "agent-b"},
		},
		prefs: map[string]model.NotificationPreferenceItem{},
	}
	fanout := NewWithClock(publisher, directory, directory, fixedClock)

	if err := fanout.NotifyEscalation(context.Background(), escalatedConversation(1), "billing"); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	broadcast := publisher.roomEvents(websocket.AgentsRoom("tenant-1"))
	if len(broadcast) != 1 || broadcast[0].Type != EventEscalationRaised {
		t.Fatalf("expected one broadcast escalation event, got %v", broadcast)
	}
	if broadcast[0].Reason != "billing" || broadcast[0].Tier != TierStandard {
		t.Fatalf("unexpected broadcast payload: %+v", broadcast[0])
	}

	for _, agentID := range []string{"agent-a", "agent-b"} {
		targeted := publisher.roomEvents(websocket.AgentRoom("tenant-1", agentID))
		if len(targeted) != 1 || targeted[0].Type != EventEscalationTargeted {
			t.Fatalf("expected targeted event for %s, got %v", agentID, targeted)
		}
	}
}

func TestTargetedDeliveryFiltersByTier(t *testing.T) {
	prefs := model.DefaultNotificationPreferences("tenant-1", "agent-a")
	prefs.NotifyOnCritical = false

	publisher := newRecordingPublisher()
	directory := &stubDirectory{
		agents: []model.AgentItem{
			{TenantID: "tenant-1", AgentID: "agent-a"},
			{TenantID: "tenant-1", AgentID: "agent-b"},
		},
		prefs: map[string]model.NotificationPreferenceItem{"agent-a": prefs},
	}
	fanout := NewWithClock(publisher, directory, directory, fixedClock)

	if err := fanout.NotifyEscalation(context.Background(), escalatedConversation(5), "outage"); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	if events := publisher.roomEvents(websocket.AgentRoom("tenant-1", "agent-a")); len(events) != 0 {
		t.Fatalf("agent-a opted out of critical, got %v", events)
	}
	events := publisher.roomEvents(websocket.AgentRoom("tenant-1", "agent-b"))
	if len(events) != 1 || events[0].Tier != TierCritical {
		t.Fatalf("agent-b should receive critical event, got %v", events)
	}
}

func TestTargetedDeliverySkipsAgentsWithoutChannels(t *testing.T) {
	prefs := model.DefaultNotificationPreferences("tenant-1", "agent-a")
	prefs.PushEnabled = false

	publisher := newRecordingPublisher()
	directory := &stubDirectory{
		agents: []model.AgentItem{{TenantID: "tenant-1", AgentID: "agent-a"}},
		prefs:  map[string]model.NotificationPreferenceItem{"agent-a": prefs},
	}
	fanout := NewWithClock(publisher, directory, directory, fixedClock)

	if err := fanout.NotifyEscalation(context.Background(), escalatedConversation(1), ""); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	if events := publisher.roomEvents(websocket.AgentRoom("tenant-1", "agent-a")); len(events) != 0 {
		t.Fatalf("no delivery channel means no targeted delivery, got %v", events)
	}
}

func TestOneFailedRecipientDoesNotBlockOthers(t *testing.T) {
	publisher := newRecordingPublisher()
	publisher.failRoom = websocket.AgentRoom("tenant-1", "agent-a")
	directory := &stubDirectory{
		agents: []model.AgentItem{
			{TenantID: "tenant-1", AgentID: "agent-a"},
			{TenantID: "tenant-1", AgentID: "agent-b"},
		},
		prefs: map[string]model.NotificationPreferenceItem{},
	}
	fanout := NewWithClock(publisher, directory, directory, fixedClock)

	if err := fanout.NotifyEscalation(context.Background(), escalatedConversation(1), ""); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	if events := publisher.roomEvents(websocket.AgentRoom("tenant-1", "agent-b")); len(events) != 1 {
		t.Fatalf("agent-b delivery should survive agent-a failure, got %v", events)
	}
}

func TestTierBuckets(t *testing.T) {
	cases := []struct {
		priority int
		tier     string
	}{
		{0, TierStandard},
		{1, TierStandard},
		{2, TierHigh},
		{3, TierCritical},
		{9, TierCritical},
	}
	for _, tc := range cases {
		if got := TierFor(tc.priority); got != tc.tier {
			t.Fatalf("priority %d: expected %s, got %s", tc.priority, tc.tier, got)
		}
	}
}

func TestNotifyAssignedHitsBothRooms(t *testing.T) {
	publisher := newRecordingPublisher()
	directory := &stubDirectory{prefs: map[string]model.NotificationPreferenceItem{}}
	fanout := NewWithClock(publisher, directory, directory, fixedClock)

	conversation := escalatedConversation(1)
	conversation.Mode = model.ConversationModeHuman
	conversation.CurrentAgentID = "agent-a"

	if err := fanout.NotifyAssigned(context.Background(), conversation, "Dana"); err != nil {
		t.Fatalf("NotifyAssigned: %v", err)
	}

	broadcast := publisher.roomEvents(websocket.AgentsRoom("tenant-1"))
	if len(broadcast) != 1 || broadcast[0].Type != EventConversationAssign {
		t.Fatalf("expected broadcast assignment, got %v", broadcast)
	}
	targeted := publisher.roomEvents(websocket.AgentRoom("tenant-1", "agent-a"))
	if len(targeted) != 1 || targeted[0].AgentName != "Dana" {
		t.Fatalf("expected targeted assignment for agent-a, got %v", targeted)
	}
	if !strings.HasPrefix(targeted[0].OccurredAt, "2026-03-02T12:00:00") {
		t.Fatalf("unexpected timestamp: %s", targeted[0].OccurredAt)
	}
}
