package websocket

import "fmt"

// AgentsRoom is the tenant-wide broadcast room every connected agent
// dashboard joins.
func AgentsRoom(tenantID string) string {
	return fmt.Sprintf("agents:%s", tenantID)
}

// AgentRoom is the per-agent room targeted notifications land in.
func AgentRoom(tenantID, agentID string) string {
	return fmt.Sprintf("agent:%s:%s", tenantID, agentID)
}

// ConversationRoom carries live messages for a single conversation.
func ConversationRoom(conversationID string) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}
