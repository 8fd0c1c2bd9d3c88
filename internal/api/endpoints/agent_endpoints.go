package endpoints

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"support-hub-backend/internal/dto"
	internaljwt "support-hub-backend/internal/jwt"
	"support-hub-backend/internal/model"
	agentservice "support-hub-backend/internal/service/agent"
	"support-hub-backend/internal/service/notification"
)

type AgentEndpoints interface {
	Register(http.ResponseWriter, *http.Request) error
	Login(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
	Agents(http.ResponseWriter, *http.Request) error
	Status(http.ResponseWriter, *http.Request) error
	Capacity(http.ResponseWriter, *http.Request) error
	Preferences(http.ResponseWriter, *http.Request) error
}

type agentEndpoints struct {
	service *agentservice.Service
	fanout  *notification.Fanout
}

func NewAgentEndpoints(service *agentservice.Service, fanout *notification.Fanout) AgentEndpoints {
	return &agentEndpoints{
		service: service,
		fanout:  fanout,
	}
}

func (h *agentEndpoints) Register(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRegister,
	})
}

func (h *agentEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *agentEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *agentEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *agentEndpoints) Agents(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListAgents,
	})
}

func (h *agentEndpoints) Status(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut:  h.handleSetStatus,
		http.MethodPost: h.handleSetStatus,
	})
}

func (h *agentEndpoints) Capacity(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleSetCapacity,
	})
}

func (h *agentEndpoints) Preferences(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:   h.handleGetPreferences,
		http.MethodPatch: h.handleUpdatePreferences,
	})
}

func (h *agentEndpoints) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req dto.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode register request: %w", err),
		}
	}

	result, err := h.service.Register(r.Context(), agentservice.RegisterParams{
		TenantID:      req.TenantID,
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		MaxConcurrent: req.MaxConcurrent,
		Priority:      req.Priority,
		Skills:        req.Skills,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toAuthResponse(result))
}

func (h *agentEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode login request: %w", err),
		}
	}

	result, err := h.service.Login(r.Context(), agentservice.LoginParams{
		TenantID: req.TenantID,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toAuthResponse(result))
}

func (h *agentEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode refresh request: %w", err),
		}
	}

	accessToken, err := internaljwt.RefreshToken(req.RefreshToken, internaljwt.RoleAgent)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid refresh token",
			ErrorLog:   fmt.Errorf("refresh token: %w", err),
		}
	}

	return WriteJSON(w, http.StatusOK, dto.RefreshResponse{AccessToken: accessToken})
}

func (h *agentEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.serviceError(err)
	}

	agent, err := h.service.Me(r.Context(), identity)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toAgentResponse(agent))
}

func (h *agentEndpoints) handleListAgents(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.serviceError(err)
	}

	agents, err := h.service.ListAgents(r.Context(), identity.TenantID)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListAgentsResponse{Agents: make([]dto.AgentResponse, 0, len(agents))}
	for _, agent := range agents {
		resp.Agents = append(resp.Agents, toAgentResponse(agent))
	}

	return WriteJSON(w, http.StatusOK, resp)
}

func (h *agentEndpoints) handleSetStatus(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.serviceError(err)
	}

	var req dto.UpdateAgentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode status request: %w", err),
		}
	}

	agent, err := h.service.SetStatus(r.Context(), identity.TenantID, identity.AgentID, model.AgentStatus(req.Status))
	if err != nil {
		return h.serviceError(err)
	}

	if err := h.fanout.NotifyAvailability(r.Context(), agent); err != nil {
		log.Printf("availability notify for agent %s failed: %v", agent.AgentID, err)
	}

	return WriteJSON(w, http.StatusOK, toAgentResponse(agent))
}

func (h *agentEndpoints) handleSetCapacity(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.serviceError(err)
	}

	var req dto.UpdateAgentCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode capacity request: %w", err),
		}
	}

	agent, err := h.service.UpdateCapacity(r.Context(), identity.TenantID, identity.AgentID, req.MaxConcurrent)
	if err != nil {
		return h.serviceError(err)
	}

	if err := h.fanout.NotifyWorkload(r.Context(), agent); err != nil {
		log.Printf("workload notify for agent %s failed: %v", agent.AgentID, err)
	}

	return WriteJSON(w, http.StatusOK, toAgentResponse(agent))
}

func (h *agentEndpoints) handleGetPreferences(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.serviceError(err)
	}

	prefs, err := h.service.GetPreferences(r.Context(), identity.TenantID, identity.AgentID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}

func (h *agentEndpoints) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.serviceError(err)
	}

	var req dto.NotificationPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode preferences request: %w", err),
		}
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), identity.TenantID, identity.AgentID, agentservice.PreferencesInput{
		NotifyOnStandard: req.NotifyOnStandard,
		NotifyOnHigh:     req.NotifyOnHigh,
		NotifyOnCritical: req.NotifyOnCritical,
		PushEnabled:      req.PushEnabled,
		AudioEnabled:     req.AudioEnabled,
		EmailEnabled:     req.EmailEnabled,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}

func (h *agentEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*agentservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("agent service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case agentservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case agentservice.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: errorLog}
	case agentservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	case agentservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func toAuthResponse(result agentservice.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Agent:        toAgentResponse(result.Agent),
		Tenant:       toTenantResponse(result.Tenant),
	}
}
