package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"support-hub-backend/internal/model"
	"support-hub-backend/internal/websocket"
)

// Publisher pushes a payload into a named room. websocket.Publish
// satisfies it through PublisherFunc.
type Publisher interface {
	Publish(roomID string, payload interface{}) error
}

type PublisherFunc func(roomID string, payload interface{}) error

func (f PublisherFunc) Publish(roomID string, payload interface{}) error {
	return f(roomID, payload)
}

// PreferenceSource resolves an agent's current notification preferences.
// Preferences are read at event time; there is no subscription list to
// keep in sync.
type PreferenceSource interface {
	GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error)
}

// AgentSource lists the tenant's agents for targeted delivery.
type AgentSource interface {
	ListAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error)
}

type Fanout struct {
	publisher Publisher
	prefs     PreferenceSource
	agents    AgentSource
	now       func() time.Time
}

func New(publisher Publisher, prefs PreferenceSource, agents AgentSource) *Fanout {
	return NewWithClock(publisher, prefs, agents, time.Now)
}

func NewWithClock(publisher Publisher, prefs PreferenceSource, agents AgentSource, now func() time.Time) *Fanout {
	if now == nil {
		now = time.Now
	}
	return &Fanout{
		publisher: publisher,
		prefs:     prefs,
		agents:    agents,
		now:       now,
	}
}

// Broadcast delivers an event to the tenant-wide agents room. Dashboards
// use this stream for queue counters and workload state, so it is never
// preference-filtered.
func (f *Fanout) Broadcast(ctx context.Context, tenantID string, event Event) error {
	event.TenantID = tenantID
	event.OccurredAt = f.now().UTC().Format(time.RFC3339)

	if err := f.publisher.Publish(websocket.AgentsRoom(tenantID), event); err != nil {
		incFailed(event.Type)
		return fmt.Errorf("broadcast %s: %w", event.Type, err)
	}
	incBroadcast(event.Type)
	return nil
}

// NotifyEscalation announces a newly escalated conversation: one
// broadcast to the tenant room, then targeted delivery to each agent
// whose preferences accept the conversation's priority tier and who has
// at least one delivery channel enabled. Targeted delivery is
// best-effort per recipient.
func (f *Fanout) NotifyEscalation(ctx context.Context, conversation model.ConversationItem, reason string) error {
	tier := TierFor(conversation.Priority)

	broadcastErr := f.Broadcast(ctx, conversation.TenantID, Event{
		Type:           EventEscalationRaised,
		ConversationID: conversation.ConversationID,
		CustomerRef:    conversation.CustomerRef,
		Priority:       conversation.Priority,
		Tier:           tier,
		Reason:         reason,
	})

	agents, err := f.agents.ListAgents(ctx, conversation.TenantID)
	if err != nil {
		return fmt.Errorf("list agents for fanout: %w", err)
	}

	targeted := Event{
		Type:           EventEscalationTargeted,
		ConversationID: conversation.ConversationID,
		CustomerRef:    conversation.CustomerRef,
		Priority:       conversation.Priority,
		Tier:           tier,
		Reason:         reason,
	}
	for _, agent := range agents {
		f.notifyAgent(ctx, conversation.TenantID, agent.AgentID, tier, targeted)
	}

	return broadcastErr
}

// NotifyAgent delivers one targeted event, applying the agent's current
// preference filter.
func (f *Fanout) NotifyAgent(ctx context.Context, tenantID, agentID string, event Event) {
	f.notifyAgent(ctx, tenantID, agentID, TierFor(event.Priority), event)
}

func (f *Fanout) notifyAgent(ctx context.Context, tenantID, agentID, tier string, event Event) {
	prefs, err := f.prefs.GetPreferences(ctx, tenantID, agentID)
	if err != nil {
		log.Printf("notification fanout: preferences for agent %s: %v", agentID, err)
		incFailed(event.Type)
		return
	}

	if !tierAccepted(prefs, tier) || !prefs.HasDeliveryChannel() {
		incFiltered(event.Type)
		return
	}

	event.TenantID = tenantID
	event.OccurredAt = f.now().UTC().Format(time.RFC3339)

	if err := f.publisher.Publish(websocket.AgentRoom(tenantID, agentID), event); err != nil {
		// One failed recipient must not sink the rest of the fanout.
		log.Printf("notification fanout: deliver to agent %s: %v", agentID, err)
		incFailed(event.Type)
		return
	}
	incTargeted(event.Type)
}

// NotifyAssigned announces an assignment on both the tenant room and the
// assigned agent's room.
func (f *Fanout) NotifyAssigned(ctx context.Context, conversation model.ConversationItem, agentName string) error {
	event := Event{
		Type:           EventConversationAssign,
		ConversationID: conversation.ConversationID,
		CustomerRef:    conversation.CustomerRef,
		AgentID:        conversation.CurrentAgentID,
		AgentName:      agentName,
		Priority:       conversation.Priority,
	}

	if err := f.Broadcast(ctx, conversation.TenantID, event); err != nil {
		return err
	}

	event.TenantID = conversation.TenantID
	event.OccurredAt = f.now().UTC().Format(time.RFC3339)
	if err := f.publisher.Publish(websocket.AgentRoom(conversation.TenantID, conversation.CurrentAgentID), event); err != nil {
		incFailed(event.Type)
		return fmt.Errorf("notify assigned agent: %w", err)
	}
	incTargeted(event.Type)
	return nil
}

func (f *Fanout) NotifyCompleted(ctx context.Context, conversation model.ConversationItem) error {
	return f.Broadcast(ctx, conversation.TenantID, Event{
		Type:           EventConversationDone,
		ConversationID: conversation.ConversationID,
		CustomerRef:    conversation.CustomerRef,
		Priority:       conversation.Priority,
	})
}

func (f *Fanout) NotifyAvailability(ctx context.Context, agent model.AgentItem) error {
	return f.Broadcast(ctx, agent.TenantID, Event{
		Type:          EventAgentAvailability,
		AgentID:       agent.AgentID,
		AgentName:     agent.Name,
		Status:        string(agent.Status),
		ActiveCount:   agent.ActiveCount,
		MaxConcurrent: agent.MaxConcurrent,
	})
}

func (f *Fanout) NotifyWorkload(ctx context.Context, agent model.AgentItem) error {
	return f.Broadcast(ctx, agent.TenantID, Event{
		Type:          EventAgentWorkload,
		AgentID:       agent.AgentID,
		AgentName:     agent.Name,
		ActiveCount:   agent.ActiveCount,
		MaxConcurrent: agent.MaxConcurrent,
	})
}
