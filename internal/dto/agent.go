package dto

type RegisterAgentRequest struct {
	TenantID      string   `json:"tenantId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	MaxConcurrent int      `json:"maxConcurrent,omitempty"`
	Priority      int      `json:"priority,omitempty"`
	Skills        []string `json:"skills,omitempty"`
}

type LoginRequest struct {
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type AgentResponse struct {
	AgentID       string   `json:"agentId"`
	TenantID      string   `json:"tenantId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Status        string   `json:"status"`
	MaxConcurrent int      `json:"maxConcurrent"`
	ActiveCount   int      `json:"activeCount"`
	Priority      int      `json:"priority"`
	Skills        []string `json:"skills,omitempty"`
	CreatedAt     string   `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	Agent        AgentResponse  `json:"agent"`
	Tenant       TenantResponse `json:"tenant"`
}

type ListAgentsResponse struct {
	Agents []AgentResponse `json:"agents"`
}

type UpdateAgentStatusRequest struct {
	Status string `json:"status"`
}

type UpdateAgentCapacityRequest struct {
	MaxConcurrent int `json:"maxConcurrent"`
}

type NotificationPreferencesRequest struct {
	NotifyOnStandard *bool `json:"notifyOnStandard,omitempty"`
	NotifyOnHigh     *bool `json:"notifyOnHigh,omitempty"`
	NotifyOnCritical *bool `json:"notifyOnCritical,omitempty"`
	PushEnabled      *bool `json:"pushEnabled,omitempty"`
	AudioEnabled     *bool `json:"audioEnabled,omitempty"`
	EmailEnabled     *bool `json:"emailEnabled,omitempty"`
}

type NotificationPreferencesResponse struct {
	NotifyOnStandard bool   `json:"notifyOnStandard"`
	NotifyOnHigh     bool   `json:"notifyOnHigh"`
	NotifyOnCritical bool   `json:"notifyOnCritical"`
	PushEnabled      bool   `json:"pushEnabled"`
	AudioEnabled     bool   `json:"audioEnabled"`
	EmailEnabled     bool   `json:"emailEnabled"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}
