package assignment

import (
	"context"
	"errors"
	"sort"
	"strings"

	"support-hub-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeRaceLost   ErrorCode = "assignment_race_lost"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Routing is the slice of tenant configuration the engine consumes.
type Routing struct {
	Strategy StrategyName
	Enabled  bool
}

// SettingsSource resolves per-tenant routing configuration.
type SettingsSource interface {
	Routing(ctx context.Context, tenantID string) (Routing, error)
}

// Assigner commits the selected agent onto the conversation state
// machine. Satisfied by escalation.Service.
type Assigner interface {
	AssignAgent(ctx context.Context, tenantID, conversationID, agentID string) (model.ConversationItem, error)
}

// Outcome is the result of one auto-assignment attempt. NoAvailableAgents
// and Disabled are legitimate outcomes, not errors; callers typically
// queue and retry later.
type Outcome struct {
	Assigned          bool
	AgentID           string
	AgentName         string
	Conversation      model.ConversationItem
	NoAvailableAgents bool
	Disabled          bool
}

// Engine selects an available agent for an escalated conversation.
// Selection is strategy-driven; the commit is re-validated against the
// store (reserve-then-assign), so a candidate that became unavailable
// between selection and commit surfaces as assignment_race_lost instead
// of over-booking the agent.
type Engine struct {
	repo     Repository
	settings SettingsSource
	assigner Assigner
	cursor   Cursor
}

func NewEngine(repo Repository, settings SettingsSource, assigner Assigner, cursor Cursor) *Engine {
	if cursor == nil {
		cursor = NewMemoryCursor()
	}
	return &Engine{
		repo:     repo,
		settings: settings,
		assigner: assigner,
		cursor:   cursor,
	}
}

func (e *Engine) TryAutoAssign(ctx context.Context, tenantID, conversationID string) (Outcome, error) {
	tenantID = strings.TrimSpace(tenantID)
	conversationID = strings.TrimSpace(conversationID)
	if tenantID == "" {
		return Outcome{}, newError(ErrorCodeValidation, "tenantId is required", nil)
	}
	if conversationID == "" {
		return Outcome{}, newError(ErrorCodeValidation, "conversationId is required", nil)
	}

	routing, err := e.settings.Routing(ctx, tenantID)
	if err != nil {
		return Outcome{}, newError(ErrorCodeInternal, "failed to load routing settings", err)
	}
	if !routing.Enabled {
		return Outcome{Disabled: true}, nil
	}

	agents, err := e.repo.ListAvailableAgents(ctx, tenantID)
	if err != nil {
		return Outcome{}, newError(ErrorCodeInternal, "failed to list agents", err)
	}

	candidates := make([]model.AgentItem, 0, len(agents))
	for _, a := range agents {
		if a.CanTakeConversation() {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return Outcome{NoAvailableAgents: true}, nil
	}

	// Deterministic ordering so round-robin wraps predictably.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].AgentID < candidates[j].AgentID
	})

	strategy := strategyFor(routing.Strategy)
	chosen := strategy(candidates, e.cursor.Last(tenantID))

	if err := e.repo.ReserveAgentSlot(ctx, tenantID, chosen.AgentID); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			return Outcome{}, newError(ErrorCodeRaceLost, "selected agent is no longer available", err)
		}
		return Outcome{}, newError(ErrorCodeInternal, "failed to reserve agent", err)
	}

	conversation, err := e.assigner.AssignAgent(ctx, tenantID, conversationID, chosen.AgentID)
	if err != nil {
		// Reservation rollback is best-effort; a leak here self-heals on
		// the next completion but must not mask the original failure.
		if releaseErr := e.repo.ReleaseAgentSlot(ctx, tenantID, chosen.AgentID); releaseErr != nil {
			return Outcome{}, newError(ErrorCodeInternal, "failed to roll back reservation", errors.Join(err, releaseErr))
		}
		return Outcome{}, err
	}

	e.cursor.Remember(tenantID, chosen.AgentID)
	incAssigned(string(routing.Strategy))

	return Outcome{
		Assigned:     true,
		AgentID:      chosen.AgentID,
		AgentName:    chosen.Name,
		Conversation: conversation,
	}, nil
}

// AssignDirect commits a caller-chosen agent instead of running a
// strategy: manual assignment and externally accepted handoffs name their
// agent up front. The same reserve-then-assign validation applies, so a
// full or unavailable agent surfaces as assignment_race_lost.
func (e *Engine) AssignDirect(ctx context.Context, tenantID, conversationID, agentID string) (Outcome, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return Outcome{}, newError(ErrorCodeValidation, "agentId is required", nil)
	}

	agent, err := e.repo.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Outcome{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return Outcome{}, newError(ErrorCodeInternal, "failed to load agent", err)
	}

	if err := e.repo.ReserveAgentSlot(ctx, tenantID, agentID); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			return Outcome{}, newError(ErrorCodeRaceLost, "agent is at capacity or unavailable", err)
		}
		return Outcome{}, newError(ErrorCodeInternal, "failed to reserve agent", err)
	}

	conversation, err := e.assigner.AssignAgent(ctx, tenantID, conversationID, agentID)
	if err != nil {
		if releaseErr := e.repo.ReleaseAgentSlot(ctx, tenantID, agentID); releaseErr != nil {
			return Outcome{}, newError(ErrorCodeInternal, "failed to roll back reservation", errors.Join(err, releaseErr))
		}
		return Outcome{}, err
	}

	incAssigned("direct")

	return Outcome{
		Assigned:     true,
		AgentID:      agentID,
		AgentName:    agent.Name,
		Conversation: conversation,
	}, nil
}

// Release frees the agent's slot after a conversation leaves their hands
// (completion or handback).
func (e *Engine) Release(ctx context.Context, tenantID, agentID string) error {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil
	}
	if err := e.repo.ReleaseAgentSlot(ctx, tenantID, agentID); err != nil {
		return newError(ErrorCodeInternal, "failed to release agent slot", err)
	}
	return nil
}

// AgentWorkload returns the agent's current load for workload events.
func (e *Engine) AgentWorkload(ctx context.Context, tenantID, agentID string) (model.AgentItem, error) {
	agent, err := e.repo.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to load agent", err)
	}
	return agent, nil
}
