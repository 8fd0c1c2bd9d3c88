package dto

type TenantResponse struct {
	TenantID  string `json:"tenantId"`
	Name      string `json:"name"`
	Plan      string `json:"plan"`
	Seats     int    `json:"seats"`
	CreatedAt string `json:"createdAt"`
}

type RoutingSettingsRequest struct {
	Strategy                string `json:"strategy,omitempty"`
	AutoAssignEnabled       *bool  `json:"autoAssignEnabled,omitempty"`
	MaxInboundPerMinute     *int   `json:"maxInboundPerMinute,omitempty"`
	MaxOutboundPerMinute    *int   `json:"maxOutboundPerMinute,omitempty"`
	DailyOutboundQuota      *int   `json:"dailyOutboundQuota,omitempty"`
	BreakerFailureThreshold *int   `json:"breakerFailureThreshold,omitempty"`
	BreakerTimeoutSeconds   *int   `json:"breakerTimeoutSeconds,omitempty"`
}

type RoutingSettingsResponse struct {
	Strategy                string `json:"strategy"`
	AutoAssignEnabled       bool   `json:"autoAssignEnabled"`
	MaxInboundPerMinute     int    `json:"maxInboundPerMinute"`
	MaxOutboundPerMinute    int    `json:"maxOutboundPerMinute"`
	DailyOutboundQuota      int    `json:"dailyOutboundQuota"`
	BreakerFailureThreshold int    `json:"breakerFailureThreshold"`
	BreakerTimeoutSeconds   int    `json:"breakerTimeoutSeconds"`
}
