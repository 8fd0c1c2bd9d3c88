package model

import "fmt"

const (
	TenantsTable                 = "Tenants"
	AgentsTable                  = "Agents"
	ConversationsTable           = "Conversations"
	HandoffsTable                = "Handoffs"
	NotificationPreferencesTable = "NotificationPreferences"
)

type TenantItem struct {
	TenantID string                 `dynamodbav:"tenantId"`
	Name     string                 `dynamodbav:"name"`
	Plan     string                 `dynamodbav:"plan"`
	Seats    int                    `dynamodbav:"seats"`
	Settings map[string]interface{} `dynamodbav:"settings,omitempty"`
	Created  string                 `dynamodbav:"createdAt"`
}

func TenantScopedPK(tenantID, entityID string) string {
	return fmt.Sprintf("%s#%s", tenantID, entityID)
}
