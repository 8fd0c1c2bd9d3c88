package notification

import "support-hub-backend/internal/model"

const (
	EventEscalationRaised   = "escalation.raised"
	EventEscalationTargeted = "escalation.targeted"
	EventConversationAssign = "conversation.assigned"
	EventConversationDone   = "conversation.completed"
	EventAgentAvailability  = "agent.availability"
	EventAgentWorkload      = "agent.workload"
)

const (
	TierStandard = "standard"
	TierHigh     = "high"
	TierCritical = "critical"
)

// Event is the payload pushed into agent notification rooms.
type Event struct {
	Type           string `json:"type"`
	TenantID       string `json:"tenantId"`
	ConversationID string `json:"conversationId,omitempty"`
	CustomerRef    string `json:"customerRef,omitempty"`
	AgentID        string `json:"agentId,omitempty"`
	AgentName      string `json:"agentName,omitempty"`
	Priority       int    `json:"priority"`
	Tier           string `json:"tier,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Status         string `json:"status,omitempty"`
	ActiveCount    int    `json:"activeCount,omitempty"`
	MaxConcurrent  int    `json:"maxConcurrent,omitempty"`
	OccurredAt     string `json:"occurredAt"`
}

// TierFor buckets a conversation priority into the three notification
// tiers preferences filter on.
func TierFor(priority int) string {
	switch {
	case priority >= 3:
		return TierCritical
	case priority == 2:
		return TierHigh
	default:
		return TierStandard
	}
}

func tierAccepted(prefs model.NotificationPreferenceItem, tier string) bool {
	switch tier {
	case TierCritical:
		return prefs.NotifyOnCritical
	case TierHigh:
		return prefs.NotifyOnHigh
	default:
		return prefs.NotifyOnStandard
	}
}
