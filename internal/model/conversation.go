package model

import "fmt"

type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "active"
	ConversationStatusCompleted ConversationStatus = "completed"
	ConversationStatusAbandoned ConversationStatus = "abandoned"
)

type ConversationMode string

const (
	ConversationModeBot        ConversationMode = "bot"
	ConversationModeEscalating ConversationMode = "escalating"
	ConversationModeHuman      ConversationMode = "human"
)

func ConversationPK(tenantID, conversationID string) string {
	return fmt.Sprintf("%s#%s", tenantID, conversationID)
}

type ConversationItem struct {
	PK             string             `dynamodbav:"pk"`
	ConversationID string             `dynamodbav:"conversationId"`
	TenantID       string             `dynamodbav:"tenantId"`
	CustomerRef    string             `dynamodbav:"customerRef"`
	CustomerPhone  string             `dynamodbav:"customerPhone,omitempty"`
	Status         ConversationStatus `dynamodbav:"status"`
	Mode           ConversationMode   `dynamodbav:"mode"`
	Priority       int                `dynamodbav:"priority"`
	CurrentAgentID string             `dynamodbav:"currentAgentId,omitempty"`
	EscalatedAt    string             `dynamodbav:"escalatedAt,omitempty"`
	CompletedAt    string             `dynamodbav:"completedAt,omitempty"`
	MessageCount   int                `dynamodbav:"messageCount"`
	LastActivityAt string             `dynamodbav:"lastActivityAt"`
	CreatedAt      string             `dynamodbav:"createdAt"`
	UpdatedAt      string             `dynamodbav:"updatedAt"`
}
