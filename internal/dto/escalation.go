package dto

type EscalationRequest struct {
	TenantID      string `json:"tenantId"`
	CustomerRef   string `json:"customerRef"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Transcript    string `json:"transcript,omitempty"`
	Priority      int    `json:"priority,omitempty"`
}

type ConversationResponse struct {
	ConversationID string `json:"conversationId"`
	TenantID       string `json:"tenantId"`
	CustomerRef    string `json:"customerRef"`
	Status         string `json:"status"`
	Mode           string `json:"mode"`
	Priority       int    `json:"priority"`
	CurrentAgentID string `json:"currentAgentId,omitempty"`
	EscalatedAt    string `json:"escalatedAt,omitempty"`
	CompletedAt    string `json:"completedAt,omitempty"`
	MessageCount   int    `json:"messageCount"`
	LastActivityAt string `json:"lastActivityAt"`
	CreatedAt      string `json:"createdAt"`
}

type AssignmentResponse struct {
	Assigned          bool   `json:"assigned"`
	AgentID           string `json:"agentId,omitempty"`
	AgentName         string `json:"agentName,omitempty"`
	NoAvailableAgents bool   `json:"noAvailableAgents,omitempty"`
	Disabled          bool   `json:"disabled,omitempty"`
}

type EscalationResponse struct {
	Conversation     ConversationResponse `json:"conversation"`
	AlreadyEscalated bool                 `json:"alreadyEscalated,omitempty"`
	Assignment       *AssignmentResponse  `json:"assignment,omitempty"`
}

type AssignAgentRequest struct {
	AgentID string `json:"agentId"`
}

type CompleteConversationRequest struct {
	ResolutionCategory string `json:"resolutionCategory,omitempty"`
	Notes              string `json:"notes,omitempty"`
}
