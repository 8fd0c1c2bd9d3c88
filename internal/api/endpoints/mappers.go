package endpoints

import (
	"support-hub-backend/internal/dto"
	"support-hub-backend/internal/model"
	"support-hub-backend/internal/service/assignment"
	tenantservice "support-hub-backend/internal/service/tenant"
)

func toConversationResponse(conversation model.ConversationItem) dto.ConversationResponse {
	return dto.ConversationResponse{
		ConversationID: conversation.ConversationID,
		TenantID:       conversation.TenantID,
		CustomerRef:    conversation.CustomerRef,
		Status:         string(conversation.Status),
		Mode:           string(conversation.Mode),
		Priority:       conversation.Priority,
		CurrentAgentID: conversation.CurrentAgentID,
		EscalatedAt:    conversation.EscalatedAt,
		CompletedAt:    conversation.CompletedAt,
		MessageCount:   conversation.MessageCount,
		LastActivityAt: conversation.LastActivityAt,
		CreatedAt:      conversation.CreatedAt,
	}
}

func toAssignmentResponse(outcome assignment.Outcome) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		Assigned:          outcome.Assigned,
		AgentID:           outcome.AgentID,
		AgentName:         outcome.AgentName,
		NoAvailableAgents: outcome.NoAvailableAgents,
		Disabled:          outcome.Disabled,
	}
}

func toAgentResponse(agent model.AgentItem) dto.AgentResponse {
	return dto.AgentResponse{
		AgentID:       agent.AgentID,
		TenantID:      agent.TenantID,
		Name:          agent.Name,
		Email:         agent.Email,
		Status:        string(agent.Status),
		MaxConcurrent: agent.MaxConcurrent,
		ActiveCount:   agent.ActiveCount,
		Priority:      agent.Priority,
		Skills:        agent.Skills,
		CreatedAt:     agent.CreatedAt,
	}
}

func toTenantResponse(tenant model.TenantItem) dto.TenantResponse {
	return dto.TenantResponse{
		TenantID:  tenant.TenantID,
		Name:      tenant.Name,
		Plan:      tenant.Plan,
		Seats:     tenant.Seats,
		CreatedAt: tenant.Created,
	}
}

func toRoutingSettingsResponse(settings tenantservice.RoutingSettings) dto.RoutingSettingsResponse {
	return dto.RoutingSettingsResponse{
		Strategy:                settings.Strategy,
		AutoAssignEnabled:       settings.AutoAssignEnabled,
		MaxInboundPerMinute:     settings.MaxInboundPerMinute,
		MaxOutboundPerMinute:    settings.MaxOutboundPerMinute,
		DailyOutboundQuota:      settings.DailyOutboundQuota,
		BreakerFailureThreshold: settings.BreakerFailureThreshold,
		BreakerTimeoutSeconds:   settings.BreakerTimeoutSeconds,
	}
}

func toPreferencesResponse(prefs model.NotificationPreferenceItem) dto.NotificationPreferencesResponse {
	return dto.NotificationPreferencesResponse{
		NotifyOnStandard: prefs.NotifyOnStandard,
		NotifyOnHigh:     prefs.NotifyOnHigh,
		NotifyOnCritical: prefs.NotifyOnCritical,
		PushEnabled:      prefs.PushEnabled,
		AudioEnabled:     prefs.AudioEnabled,
		EmailEnabled:     prefs.EmailEnabled,
		UpdatedAt:        prefs.UpdatedAt,
	}
}
