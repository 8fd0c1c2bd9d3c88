package endpoints

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"support-hub-backend/internal/dto"
	"support-hub-backend/internal/model"
	"support-hub-backend/internal/service/assignment"
	escalationservice "support-hub-backend/internal/service/escalation"
	"support-hub-backend/internal/service/notification"
)

type EscalationEndpoints interface {
	Escalations(http.ResponseWriter, *http.Request) error
	Conversations(http.ResponseWriter, *http.Request) error
}

type escalationEndpoints struct {
	service    *escalationservice.Service
	engine     *assignment.Engine
	fanout     *notification.Fanout
	identities IdentitySource
	prefix     string
}

func NewEscalationEndpoints(
	service *escalationservice.Service,
	engine *assignment.Engine,
	fanout *notification.Fanout,
	identities IdentitySource,
	prefix string,
) EscalationEndpoints {
	return &escalationEndpoints{
		service:    service,
		engine:     engine,
		fanout:     fanout,
		identities: identities,
		prefix:     strings.TrimRight(prefix, "/") + "/conversations/",
	}
}

func (h *escalationEndpoints) Escalations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleEscalate,
	})
}

// Conversations dispatches /conversations/{id} and the action
// sub-resources /assign, /auto-assign, /complete, /activity and /handback.
func (h *escalationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, h.prefix), "/")
	if rest == "" {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("conversation id missing in path %s", r.URL.Path),
		}
	}

	parts := strings.SplitN(rest, "/", 2)
	conversationID := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleGetConversation(w, r, conversationID)
			},
		})
	case "assign":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleAssign(w, r, conversationID)
			},
		})
	case "auto-assign":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleAutoAssign(w, r, conversationID)
			},
		})
	case "complete":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleComplete(w, r, conversationID)
			},
		})
	case "activity":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleActivity(w, r, conversationID)
			},
		})
	case "handback":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleHandback(w, r, conversationID)
			},
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("unknown conversation action %q", action),
		}
	}
}

func (h *escalationEndpoints) handleEscalate(w http.ResponseWriter, r *http.Request) error {
	var req dto.EscalationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode escalation request: %w", err),
		}
	}

	result, err := h.service.Escalate(r.Context(), escalationservice.EscalateParams{
		TenantID:      req.TenantID,
		CustomerRef:   req.CustomerRef,
		CustomerPhone: req.CustomerPhone,
		Reason:        req.Reason,
		Transcript:    req.Transcript,
		Priority:      req.Priority,
	})
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.EscalationResponse{
		Conversation:     toConversationResponse(result.Conversation),
		AlreadyEscalated: result.AlreadyEscalated,
	}

	if result.AlreadyEscalated {
		return WriteJSON(w, http.StatusOK, resp)
	}

	if err := h.fanout.NotifyEscalation(r.Context(), result.Conversation, result.Handoff.Reason); err != nil {
		log.Printf("escalation notify failed for conversation %s: %v", result.Conversation.ConversationID, err)
	}

	outcome, err := h.engine.TryAutoAssign(r.Context(), result.Conversation.TenantID, result.Conversation.ConversationID)
	if err != nil {
		// Auto-assignment failing never fails the escalation; the
		// conversation stays escalated and waits for a manual pick-up.
		log.Printf("auto-assign after escalation failed for conversation %s: %v", result.Conversation.ConversationID, err)
	} else {
		assignResp := toAssignmentResponse(outcome)
		resp.Assignment = &assignResp
		if outcome.Assigned {
			resp.Conversation = toConversationResponse(outcome.Conversation)
			h.notifyAssigned(r, outcome.Conversation, outcome.AgentName)
			h.notifyWorkload(r, outcome.Conversation.TenantID, outcome.AgentID)
		}
	}

	return WriteJSON(w, http.StatusCreated, resp)
}

func (h *escalationEndpoints) handleGetConversation(w http.ResponseWriter, r *http.Request, conversationID string) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	conversation, err := h.service.GetConversation(r.Context(), identity.TenantID, conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toConversationResponse(conversation))
}

func (h *escalationEndpoints) handleAssign(w http.ResponseWriter, r *http.Request, conversationID string) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	var req dto.AssignAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode assign request: %w", err),
		}
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		// An agent picking up a conversation assigns it to themselves.
		agentID = identity.AgentID
	}

	previous, err := h.service.GetConversation(r.Context(), identity.TenantID, conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	outcome, err := h.engine.AssignDirect(r.Context(), identity.TenantID, conversationID, agentID)
	if err != nil {
		return h.assignmentError(err)
	}

	if previous.CurrentAgentID != "" && previous.CurrentAgentID != outcome.AgentID {
		if err := h.engine.Release(r.Context(), identity.TenantID, previous.CurrentAgentID); err != nil {
			log.Printf("release of transferring agent %s failed: %v", previous.CurrentAgentID, err)
		}
		h.notifyWorkload(r, identity.TenantID, previous.CurrentAgentID)
		// The agent who lost the conversation hears about it on their
		// personal room, subject to their own preference filter.
		h.fanout.NotifyAgent(r.Context(), identity.TenantID, previous.CurrentAgentID, notification.Event{
			Type:           notification.EventConversationAssign,
			ConversationID: conversationID,
			AgentID:        outcome.AgentID,
			AgentName:      outcome.AgentName,
			Priority:       outcome.Conversation.Priority,
		})
	}

	h.notifyAssigned(r, outcome.Conversation, outcome.AgentName)
	h.notifyWorkload(r, identity.TenantID, outcome.AgentID)

	assignResp := toAssignmentResponse(outcome)
	return WriteJSON(w, http.StatusOK, dto.EscalationResponse{
		Conversation: toConversationResponse(outcome.Conversation),
		Assignment:   &assignResp,
	})
}

func (h *escalationEndpoints) handleAutoAssign(w http.ResponseWriter, r *http.Request, conversationID string) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	outcome, err := h.engine.TryAutoAssign(r.Context(), identity.TenantID, conversationID)
	if err != nil {
		return h.assignmentError(err)
	}

	if outcome.Assigned {
		h.notifyAssigned(r, outcome.Conversation, outcome.AgentName)
		h.notifyWorkload(r, identity.TenantID, outcome.AgentID)
	}

	assignResp := toAssignmentResponse(outcome)
	resp := dto.EscalationResponse{Assignment: &assignResp}
	if outcome.Assigned {
		resp.Conversation = toConversationResponse(outcome.Conversation)
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *escalationEndpoints) handleComplete(w http.ResponseWriter, r *http.Request, conversationID string) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	var req dto.CompleteConversationRequest
	if r.Body != nil {
		// The body is optional; resolution metadata only.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.Complete(r.Context(), identity.TenantID, conversationID, req.ResolutionCategory, req.Notes)
	if err != nil {
		return h.serviceError(err)
	}

	if result.ReleasedAgentID != "" {
		if err := h.engine.Release(r.Context(), identity.TenantID, result.ReleasedAgentID); err != nil {
			log.Printf("release of agent %s on completion failed: %v", result.ReleasedAgentID, err)
		}
		h.notifyWorkload(r, identity.TenantID, result.ReleasedAgentID)
	}

	if err := h.fanout.NotifyCompleted(r.Context(), result.Conversation); err != nil {
		log.Printf("completion notify failed for conversation %s: %v", conversationID, err)
	}

	return WriteJSON(w, http.StatusOK, toConversationResponse(result.Conversation))
}

// handleActivity bumps the message counter and activity timestamp. The
// message pipeline calls this once per delivered message.
func (h *escalationEndpoints) handleActivity(w http.ResponseWriter, r *http.Request, conversationID string) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	conversation, err := h.service.TouchActivity(r.Context(), identity.TenantID, conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toConversationResponse(conversation))
}

func (h *escalationEndpoints) handleHandback(w http.ResponseWriter, r *http.Request, conversationID string) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	previous, err := h.service.GetConversation(r.Context(), identity.TenantID, conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	conversation, err := h.service.Handback(r.Context(), identity.TenantID, conversationID, model.HandoffStatusCompleted)
	if err != nil {
		return h.serviceError(err)
	}

	if previous.CurrentAgentID != "" {
		if err := h.engine.Release(r.Context(), identity.TenantID, previous.CurrentAgentID); err != nil {
			log.Printf("release of agent %s on handback failed: %v", previous.CurrentAgentID, err)
		}
		h.notifyWorkload(r, identity.TenantID, previous.CurrentAgentID)
	}

	return WriteJSON(w, http.StatusOK, toConversationResponse(conversation))
}

func (h *escalationEndpoints) notifyAssigned(r *http.Request, conversation model.ConversationItem, agentName string) {
	if err := h.fanout.NotifyAssigned(r.Context(), conversation, agentName); err != nil {
		log.Printf("assignment notify failed for conversation %s: %v", conversation.ConversationID, err)
	}
}

func (h *escalationEndpoints) notifyWorkload(r *http.Request, tenantID, agentID string) {
	agent, err := h.engine.AgentWorkload(r.Context(), tenantID, agentID)
	if err != nil {
		log.Printf("workload lookup for agent %s failed: %v", agentID, err)
		return
	}
	if err := h.fanout.NotifyWorkload(r.Context(), agent); err != nil {
		log.Printf("workload notify for agent %s failed: %v", agentID, err)
	}
}

func (h *escalationEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*escalationservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("escalation service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case escalationservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case escalationservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	case escalationservice.ErrorCodeNotEscalated, escalationservice.ErrorCodeConversationClosed:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func (h *escalationEndpoints) assignmentError(err error) error {
	if err == nil {
		return nil
	}

	asgErr, ok := err.(*assignment.Error)
	if !ok {
		return h.serviceError(err)
	}

	var errorLog error
	if asgErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", asgErr.Message, asgErr.Err)
	} else {
		errorLog = asgErr
	}

	switch asgErr.Code {
	case assignment.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: asgErr.Message, ErrorLog: errorLog}
	case assignment.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: asgErr.Message, ErrorLog: errorLog}
	case assignment.ErrorCodeRaceLost:
		return &HTTPError{StatusCode: http.StatusConflict, Message: asgErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func (h *escalationEndpoints) identityError(err error) error {
	return &HTTPError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Unauthorized",
		ErrorLog:   fmt.Errorf("resolve agent identity: %w", err),
	}
}
