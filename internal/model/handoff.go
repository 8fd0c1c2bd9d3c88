package model

import "fmt"

type HandoffStatus string

const (
	HandoffStatusPending   HandoffStatus = "pending"
	HandoffStatusAccepted  HandoffStatus = "accepted"
	HandoffStatusFailed    HandoffStatus = "failed"
	HandoffStatusCompleted HandoffStatus = "completed"
)

type HandoffType string

const (
	HandoffTypeBotToHuman   HandoffType = "bot_to_human"
	HandoffTypeAgentToAgent HandoffType = "agent_to_agent"
	HandoffTypeHumanToBot   HandoffType = "human_to_bot"
)

func HandoffPK(conversationID, handoffID string) string {
	return fmt.Sprintf("%s#%s", conversationID, handoffID)
}

// HandoffItem is an append-only record of one transfer attempt. Completed
// records are never mutated; a re-assignment writes a new record.
type HandoffItem struct {
	PK             string        `dynamodbav:"pk"`
	HandoffID      string        `dynamodbav:"handoffId"`
	ConversationID string        `dynamodbav:"conversationId"`
	TenantID       string        `dynamodbav:"tenantId"`
	Type           HandoffType   `dynamodbav:"type"`
	FromAgentID    string        `dynamodbav:"fromAgentId,omitempty"`
	ToAgentID      string        `dynamodbav:"toAgentId,omitempty"`
	Reason         string        `dynamodbav:"reason,omitempty"`
	Transcript     string        `dynamodbav:"transcript,omitempty"`
	Status         HandoffStatus `dynamodbav:"status"`
	InitiatedAt    string        `dynamodbav:"initiatedAt"`
	AcceptedAt     string        `dynamodbav:"acceptedAt,omitempty"`
	CompletedAt    string        `dynamodbav:"completedAt,omitempty"`
}
