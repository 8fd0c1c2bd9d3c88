package dto

type WebhookResponse struct {
	Status       string `json:"status"`
	Action       string `json:"action,omitempty"`
	AgentID      string `json:"agentId,omitempty"`
	IgnoreReason string `json:"ignoreReason,omitempty"`
}
