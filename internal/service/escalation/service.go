package escalation

import (
	"context"
	"errors"
	"strings"
	"time"

	"support-hub-backend/internal/database"
	"support-hub-backend/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "validation_error"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeNotEscalated       ErrorCode = "not_escalated"
	ErrorCodeConversationClosed ErrorCode = "conversation_closed"
	ErrorCodeInternal           ErrorCode = "internal_error"
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

type EscalateParams struct {
	TenantID      string
	CustomerRef   string
	Reason        string
	Transcript    string
	CustomerPhone string
	Priority      int
}

type EscalateResult struct {
	Conversation model.ConversationItem
	Handoff      model.HandoffItem
	// AlreadyEscalated is set when the conversation was not in bot mode:
	// the existing state is returned, no handoff record is written and
	// EscalatedAt is untouched.
	AlreadyEscalated bool
}

type CompleteResult struct {
	Conversation model.ConversationItem
	// ReleasedAgentID is the agent who held the conversation before
	// completion, empty when it was still in bot or escalating mode.
	ReleasedAgentID string
}

// Service owns the conversation mode/status state machine:
// bot -> escalating -> human -> completed, with handback to bot from
// escalating/human and completion from any non-terminal state.
type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// Escalate marks the conversation as needing a human. Calling it while
// the conversation is already escalating or assigned is a no-op that
// returns the current state, so webhook retries and double-taps from the
// assistant never write duplicate handoffs.
func (s *Service) Escalate(ctx context.Context, params EscalateParams) (EscalateResult, error) {
	tenantID := strings.TrimSpace(params.TenantID)
	customerRef := strings.TrimSpace(params.CustomerRef)

	if tenantID == "" {
		return EscalateResult{}, newError(ErrorCodeValidation, "tenantId is required", nil)
	}
	if customerRef == "" {
		return EscalateResult{}, newError(ErrorCodeValidation, "conversation reference is required", nil)
	}

	if _, err := s.repo.GetTenant(ctx, tenantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return EscalateResult{}, newError(ErrorCodeNotFound, "tenant not found", err)
		}
		return EscalateResult{}, newError(ErrorCodeInternal, "failed to load tenant", err)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	conversation, err := s.repo.GetConversationByCustomerRef(ctx, tenantID, customerRef)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return EscalateResult{}, newError(ErrorCodeInternal, "failed to lookup conversation", err)
		}
		conversation = model.ConversationItem{
			PK:             model.ConversationPK(tenantID, uuid.NewString()),
			ConversationID: "",
			TenantID:       tenantID,
			CustomerRef:    customerRef,
			CustomerPhone:  strings.TrimSpace(params.CustomerPhone),
			Status:         model.ConversationStatusActive,
			Mode:           model.ConversationModeBot,
			Priority:       params.Priority,
			LastActivityAt: nowStr,
			CreatedAt:      nowStr,
			UpdatedAt:      nowStr,
		}
		conversation.ConversationID = strings.SplitN(conversation.PK, "#", 2)[1]
		if err := s.repo.CreateConversation(ctx, conversation); err != nil {
			return EscalateResult{}, newError(ErrorCodeInternal, "failed to create conversation", err)
		}
	}

	if conversation.Status == model.ConversationStatusCompleted {
		return EscalateResult{}, newError(ErrorCodeConversationClosed, "conversation is closed", nil)
	}

	if conversation.Mode != model.ConversationModeBot {
		return EscalateResult{
			Conversation:     conversation,
			AlreadyEscalated: true,
		}, nil
	}

	conversation.Mode = model.ConversationModeEscalating
	conversation.EscalatedAt = nowStr
	conversation.LastActivityAt = nowStr
	conversation.UpdatedAt = nowStr
	if params.Priority > conversation.Priority {
		conversation.Priority = params.Priority
	}

	if err := s.repo.UpdateConversationState(ctx, conversation); err != nil {
		return EscalateResult{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	handoff := model.HandoffItem{
		PK:             model.HandoffPK(conversation.ConversationID, uuid.NewString()),
		ConversationID: conversation.ConversationID,
		TenantID:       tenantID,
		Type:           model.HandoffTypeBotToHuman,
		Reason:         strings.TrimSpace(params.Reason),
		Transcript:     params.Transcript,
		Status:         model.HandoffStatusPending,
		InitiatedAt:    nowStr,
	}
	handoff.HandoffID = strings.SplitN(handoff.PK, "#", 2)[1]

	if err := s.repo.CreateHandoff(ctx, handoff); err != nil {
		return EscalateResult{}, newError(ErrorCodeInternal, "failed to record handoff", err)
	}

	return EscalateResult{
		Conversation: conversation,
		Handoff:      handoff,
	}, nil
}

// AssignAgent moves the conversation to human mode. Valid only while the
// conversation is escalating or already held by a human.
func (s *Service) AssignAgent(ctx context.Context, tenantID, conversationID, agentID string) (model.ConversationItem, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "agentId is required", nil)
	}

	conversation, err := s.loadConversation(ctx, tenantID, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}

	if conversation.Status == model.ConversationStatusCompleted {
		return model.ConversationItem{}, newError(ErrorCodeConversationClosed, "conversation is closed", nil)
	}

	switch conversation.Mode {
	case model.ConversationModeEscalating, model.ConversationModeHuman:
	default:
		return model.ConversationItem{}, newError(ErrorCodeNotEscalated, "conversation is not escalated", nil)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	previousAgent := conversation.CurrentAgentID
	conversation.Mode = model.ConversationModeHuman
	conversation.CurrentAgentID = agentID
	conversation.LastActivityAt = nowStr
	conversation.UpdatedAt = nowStr

	if err := s.repo.UpdateConversationState(ctx, conversation); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	if handoff, err := s.repo.LatestHandoff(ctx, conversation.ConversationID); err == nil && handoff.Status == model.HandoffStatusPending {
		if err := s.repo.UpdateHandoff(ctx, conversation.ConversationID, handoff.HandoffID, model.HandoffStatusAccepted, nowStr, agentID); err != nil {
			return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to update handoff", err)
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load handoff", err)
	}

	// Agent-to-agent transfer gets its own append-only record.
	if previousAgent != "" && previousAgent != agentID {
		transfer := model.HandoffItem{
			PK:             model.HandoffPK(conversation.ConversationID, uuid.NewString()),
			ConversationID: conversation.ConversationID,
			TenantID:       conversation.TenantID,
			Type:           model.HandoffTypeAgentToAgent,
			FromAgentID:    previousAgent,
			ToAgentID:      agentID,
			Status:         model.HandoffStatusAccepted,
			InitiatedAt:    nowStr,
			AcceptedAt:     nowStr,
		}
		transfer.HandoffID = strings.SplitN(transfer.PK, "#", 2)[1]
		if err := s.repo.CreateHandoff(ctx, transfer); err != nil {
			return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to record transfer", err)
		}
	}

	return conversation, nil
}

// Handback returns the conversation to the assistant, clearing the
// current agent. handoffStatus records how the open handoff ended
// (completed for a finished transfer, failed to allow retry).
func (s *Service) Handback(ctx context.Context, tenantID, conversationID string, handoffStatus model.HandoffStatus) (model.ConversationItem, error) {
	conversation, err := s.loadConversation(ctx, tenantID, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}

	if conversation.Status == model.ConversationStatusCompleted {
		return model.ConversationItem{}, newError(ErrorCodeConversationClosed, "conversation is closed", nil)
	}

	switch conversation.Mode {
	case model.ConversationModeEscalating, model.ConversationModeHuman:
	default:
		return model.ConversationItem{}, newError(ErrorCodeNotEscalated, "conversation is not escalated", nil)
	}

	if handoffStatus != model.HandoffStatusFailed {
		handoffStatus = model.HandoffStatusCompleted
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	conversation.Mode = model.ConversationModeBot
	conversation.CurrentAgentID = ""
	conversation.EscalatedAt = ""
	conversation.LastActivityAt = nowStr
	conversation.UpdatedAt = nowStr

	if err := s.repo.UpdateConversationState(ctx, conversation); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	if handoff, err := s.repo.LatestHandoff(ctx, conversation.ConversationID); err == nil && !isTerminalHandoff(handoff.Status) {
		if err := s.repo.UpdateHandoff(ctx, conversation.ConversationID, handoff.HandoffID, handoffStatus, nowStr, ""); err != nil {
			return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to update handoff", err)
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load handoff", err)
	}

	return conversation, nil
}

// Complete closes the conversation. Terminal: every later transition
// attempt fails with conversation_closed.
func (s *Service) Complete(ctx context.Context, tenantID, conversationID, resolutionCategory, notes string) (CompleteResult, error) {
	conversation, err := s.loadConversation(ctx, tenantID, conversationID)
	if err != nil {
		return CompleteResult{}, err
	}

	if conversation.Status == model.ConversationStatusCompleted {
		return CompleteResult{}, newError(ErrorCodeConversationClosed, "conversation is closed", nil)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	released := conversation.CurrentAgentID
	conversation.Status = model.ConversationStatusCompleted
	conversation.Mode = model.ConversationModeBot
	conversation.CurrentAgentID = ""
	conversation.CompletedAt = nowStr
	conversation.LastActivityAt = nowStr
	conversation.UpdatedAt = nowStr

	if err := s.repo.UpdateConversationState(ctx, conversation); err != nil {
		return CompleteResult{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	if handoff, err := s.repo.LatestHandoff(ctx, conversation.ConversationID); err == nil && !isTerminalHandoff(handoff.Status) {
		if err := s.repo.UpdateHandoff(ctx, conversation.ConversationID, handoff.HandoffID, model.HandoffStatusCompleted, nowStr, ""); err != nil {
			return CompleteResult{}, newError(ErrorCodeInternal, "failed to update handoff", err)
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return CompleteResult{}, newError(ErrorCodeInternal, "failed to load handoff", err)
	}

	return CompleteResult{
		Conversation:    conversation,
		ReleasedAgentID: released,
	}, nil
}

// TouchActivity bumps the message counter and activity timestamp after a
// new customer or agent message.
func (s *Service) TouchActivity(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error) {
	conversation, err := s.loadConversation(ctx, tenantID, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	conversation.MessageCount++
	conversation.LastActivityAt = nowStr
	conversation.UpdatedAt = nowStr

	if err := s.repo.UpdateConversationState(ctx, conversation); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}
	return conversation, nil
}

func (s *Service) GetConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error) {
	return s.loadConversation(ctx, tenantID, conversationID)
}

func (s *Service) loadConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	conversationID = strings.TrimSpace(conversationID)

	if tenantID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "tenantId is required", nil)
	}
	if conversationID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "conversationId is required", nil)
	}

	conversation, err := s.repo.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}
	return conversation, nil
}

func isTerminalHandoff(status model.HandoffStatus) bool {
	return status == model.HandoffStatusFailed || status == model.HandoffStatusCompleted
}
