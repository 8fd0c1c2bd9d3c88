package model

type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "available"
	AgentStatusBusy      AgentStatus = "busy"
	AgentStatusOffline   AgentStatus = "offline"
	AgentStatusOnBreak   AgentStatus = "on_break"
)

func AgentPK(tenantID, agentID string) string {
	return TenantScopedPK(tenantID, agentID)
}

type AgentItem struct {
	PK            string      `dynamodbav:"pk"`
	TenantID      string      `dynamodbav:"tenantId"`
	AgentID       string      `dynamodbav:"agentId"`
	Email         string      `dynamodbav:"email"`
	Name          string      `dynamodbav:"name"`
	Status        AgentStatus `dynamodbav:"status"`
	MaxConcurrent int         `dynamodbav:"maxConcurrent"`
	ActiveCount   int         `dynamodbav:"activeCount"`
	Priority      int         `dynamodbav:"priority"`
	Skills        []string    `dynamodbav:"skills,omitempty"`
	PasswordHash  string      `dynamodbav:"passwordHash"`
	CreatedAt     string      `dynamodbav:"createdAt"`
	UpdatedAt     string      `dynamodbav:"updatedAt"`
}

// CanTakeConversation reports whether the agent is a valid assignment
// candidate right now.
func (a AgentItem) CanTakeConversation() bool {
	return a.Status == AgentStatusAvailable && a.ActiveCount < a.MaxConcurrent
}

type NotificationPreferenceItem struct {
	PK               string `dynamodbav:"pk"`
	TenantID         string `dynamodbav:"tenantId"`
	AgentID          string `dynamodbav:"agentId"`
	NotifyOnStandard bool   `dynamodbav:"notifyOnStandard"`
	NotifyOnHigh     bool   `dynamodbav:"notifyOnHigh"`
	NotifyOnCritical bool   `dynamodbav:"notifyOnCritical"`
	PushEnabled      bool   `dynamodbav:"pushEnabled"`
	AudioEnabled     bool   `dynamodbav:"audioEnabled"`
	EmailEnabled     bool   `dynamodbav:"emailEnabled"`
	UpdatedAt        string `dynamodbav:"updatedAt"`
}

// HasDeliveryChannel reports whether at least one delivery channel is on.
func (p NotificationPreferenceItem) HasDeliveryChannel() bool {
	return p.PushEnabled || p.AudioEnabled || p.EmailEnabled
}

// DefaultNotificationPreferences are applied when an agent has never
// saved preferences: all tiers, push only.
func DefaultNotificationPreferences(tenantID, agentID string) NotificationPreferenceItem {
	return NotificationPreferenceItem{
		PK:               AgentPK(tenantID, agentID),
		TenantID:         tenantID,
		AgentID:          agentID,
		NotifyOnStandard: true,
		NotifyOnHigh:     true,
		NotifyOnCritical: true,
		PushEnabled:      true,
	}
}
