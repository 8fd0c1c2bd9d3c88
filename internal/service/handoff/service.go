package handoff

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"support-hub-backend/internal/model"
	"support-hub-backend/internal/outbound"
	"support-hub-backend/internal/service/assignment"
	"support-hub-backend/internal/service/escalation"
)

// Escalations is the slice of the conversation state machine the webhook
// protocol drives. Satisfied by escalation.Service.
type Escalations interface {
	Escalate(ctx context.Context, params escalation.EscalateParams) (escalation.EscalateResult, error)
	Handback(ctx context.Context, tenantID, conversationID string, status model.HandoffStatus) (model.ConversationItem, error)
	GetConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error)
}

// Assignments is satisfied by assignment.Engine.
type Assignments interface {
	TryAutoAssign(ctx context.Context, tenantID, conversationID string) (assignment.Outcome, error)
	AssignDirect(ctx context.Context, tenantID, conversationID, agentID string) (assignment.Outcome, error)
	Release(ctx context.Context, tenantID, agentID string) error
}

// Notifier is satisfied by notification.Fanout.
type Notifier interface {
	NotifyEscalation(ctx context.Context, conversation model.ConversationItem, reason string) error
	NotifyAssigned(ctx context.Context, conversation model.ConversationItem, agentName string) error
	NotifyCompleted(ctx context.Context, conversation model.ConversationItem) error
}

type Service struct {
	escalations Escalations
	engine      Assignments
	notifier    Notifier
	sender      outbound.Sender
	secret      string
	now         func() time.Time
}

func New(escalations Escalations, engine Assignments, notifier Notifier, sender outbound.Sender, secret string) *Service {
	return &Service{
		escalations: escalations,
		engine:      engine,
		notifier:    notifier,
		sender:      sender,
		secret:      secret,
		now:         time.Now,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body. An empty
// configured secret disables verification.
func (s *Service) VerifySignature(body []byte, signature string) bool {
	if s.secret == "" {
		return true
	}

	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// HandleWebhook parses and dispatches one webhook delivery. Malformed
// payloads are logged and ignored; they never take the conversation flow
// down with them.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (Result, error) {
	if !s.VerifySignature(body, signature) {
		return Result{}, newError(ErrorCodeUnauthorized, "invalid webhook signature", nil)
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("handoff webhook: unparseable payload: %v", err)
		incIgnored("unparseable")
		return Result{Ignored: true, IgnoreReason: "unparseable payload"}, nil
	}

	switch event.Type {
	case EventTypeInitiate:
		return s.handleInitiate(ctx, event)
	case EventTypeStatus:
		return s.handleStatus(ctx, event)
	default:
		log.Printf("handoff webhook: unknown event type %q", event.Type)
		incIgnored("unknown_type")
		return Result{Ignored: true, IgnoreReason: "unknown event type"}, nil
	}
}

const transferringMessage = "You are being transferred to a support agent. One moment please."

func (s *Service) handleInitiate(ctx context.Context, event Event) (Result, error) {
	result, err := s.escalations.Escalate(ctx, escalation.EscalateParams{
		TenantID:      event.TenantID,
		CustomerRef:   event.ConversationRef,
		Reason:        event.Reason,
		Transcript:    event.Transcript,
		CustomerPhone: event.CustomerPhone,
		Priority:      event.Priority,
	})
	if err != nil {
		// The customer still hears that a human was requested, even when
		// the bookkeeping underneath failed. Validation failures carry no
		// routable customer, so only those skip the ack.
		var escErr *escalation.Error
		if !errors.As(err, &escErr) || escErr.Code != escalation.ErrorCodeValidation {
			s.sendCustomerMessage(ctx, model.ConversationItem{
				TenantID:       event.TenantID,
				ConversationID: event.ConversationID,
				CustomerPhone:  event.CustomerPhone,
			}, outbound.KindTransferring, transferringMessage)
		}
		return Result{}, err
	}

	incEvent(EventTypeInitiate)
	conversation := result.Conversation

	// The customer-facing side always hears that a transfer is underway,
	// even when the escalation was a repeat.
	s.sendCustomerMessage(ctx, conversation, outbound.KindTransferring, transferringMessage)

	if result.AlreadyEscalated {
		return Result{
			Action:       "already_escalated",
			Conversation: conversation,
		}, nil
	}

	if err := s.notifier.NotifyEscalation(ctx, conversation, event.Reason); err != nil {
		log.Printf("handoff webhook: escalation fanout: %v", err)
	}

	outcome, err := s.engine.TryAutoAssign(ctx, conversation.TenantID, conversation.ConversationID)
	if err != nil {
		// Assignment can wait for a manual pick; the escalation itself
		// already succeeded.
		log.Printf("handoff webhook: auto-assign: %v", err)
		return Result{Action: "escalated", Conversation: conversation}, nil
	}
	if !outcome.Assigned {
		return Result{Action: "escalated", Conversation: conversation}, nil
	}

	if err := s.notifier.NotifyAssigned(ctx, outcome.Conversation, outcome.AgentName); err != nil {
		log.Printf("handoff webhook: assignment fanout: %v", err)
	}

	return Result{
		Action:       "assigned",
		Conversation: outcome.Conversation,
		AgentID:      outcome.AgentID,
	}, nil
}

func (s *Service) handleStatus(ctx context.Context, event Event) (Result, error) {
	switch event.Status {
	case StatusAccepted:
		return s.handleAccepted(ctx, event)
	case StatusFailed:
		return s.handleFailed(ctx, event)
	case StatusCompleted:
		return s.handleCompleted(ctx, event)
	default:
		log.Printf("handoff webhook: unknown status %q for conversation %s", event.Status, event.ConversationID)
		incIgnored("unknown_status")
		return Result{Ignored: true, IgnoreReason: "unknown status"}, nil
	}
}

func (s *Service) handleAccepted(ctx context.Context, event Event) (Result, error) {
	if strings.TrimSpace(event.AgentID) == "" {
		log.Printf("handoff webhook: accepted without agentId for conversation %s", event.ConversationID)
		incIgnored("accepted_without_agent")
		return Result{Ignored: true, IgnoreReason: "accepted without agentId"}, nil
	}

	previous, err := s.escalations.GetConversation(ctx, event.TenantID, event.ConversationID)
	if err != nil {
		return Result{}, err
	}

	outcome, err := s.engine.AssignDirect(ctx, event.TenantID, event.ConversationID, event.AgentID)
	if err != nil {
		return Result{}, err
	}

	if previous.CurrentAgentID != "" && previous.CurrentAgentID != event.AgentID {
		if err := s.engine.Release(ctx, event.TenantID, previous.CurrentAgentID); err != nil {
			log.Printf("handoff webhook: release transferring agent %s: %v", previous.CurrentAgentID, err)
		}
	}

	incEvent(EventTypeStatus)
	if err := s.notifier.NotifyAssigned(ctx, outcome.Conversation, firstNonEmpty(event.AgentName, outcome.AgentName)); err != nil {
		log.Printf("handoff webhook: assignment fanout: %v", err)
	}

	return Result{
		Action:       "assigned",
		Conversation: outcome.Conversation,
		AgentID:      outcome.AgentID,
	}, nil
}

func (s *Service) handleFailed(ctx context.Context, event Event) (Result, error) {
	previous, err := s.escalations.GetConversation(ctx, event.TenantID, event.ConversationID)
	if err != nil {
		return Result{}, err
	}

	conversation, err := s.escalations.Handback(ctx, event.TenantID, event.ConversationID, model.HandoffStatusFailed)
	if err != nil {
		return Result{}, err
	}

	if previous.CurrentAgentID != "" {
		if err := s.engine.Release(ctx, event.TenantID, previous.CurrentAgentID); err != nil {
			log.Printf("handoff webhook: release agent %s: %v", previous.CurrentAgentID, err)
		}
	}

	incEvent(EventTypeStatus)
	s.sendCustomerMessage(ctx, conversation, outbound.KindRetryGuidance,
		"We couldn't reach an agent just now. Reply HELP to try again or keep chatting with the assistant.")

	return Result{Action: "handed_back", Conversation: conversation}, nil
}

func (s *Service) handleCompleted(ctx context.Context, event Event) (Result, error) {
	previous, err := s.escalations.GetConversation(ctx, event.TenantID, event.ConversationID)
	if err != nil {
		return Result{}, err
	}

	conversation, err := s.escalations.Handback(ctx, event.TenantID, event.ConversationID, model.HandoffStatusCompleted)
	if err != nil {
		return Result{}, err
	}

	if previous.CurrentAgentID != "" {
		if err := s.engine.Release(ctx, event.TenantID, previous.CurrentAgentID); err != nil {
			log.Printf("handoff webhook: release agent %s: %v", previous.CurrentAgentID, err)
		}
	}

	incEvent(EventTypeStatus)
	if err := s.notifier.NotifyCompleted(ctx, conversation); err != nil {
		log.Printf("handoff webhook: completion fanout: %v", err)
	}

	return Result{Action: "handed_back", Conversation: conversation}, nil
}

// sendCustomerMessage pushes a customer-facing ack through the guarded
// outbound channel. Throttled or broken channels are logged, never fatal.
func (s *Service) sendCustomerMessage(ctx context.Context, conversation model.ConversationItem, kind, body string) {
	if conversation.CustomerPhone == "" {
		return
	}

	err := s.sender.Send(ctx, outbound.Message{
		TenantID:       conversation.TenantID,
		ConversationID: conversation.ConversationID,
		CustomerPhone:  conversation.CustomerPhone,
		Kind:           kind,
		Body:           body,
		SentAt:         s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("handoff webhook: outbound %s message for conversation %s: %v", kind, conversation.ConversationID, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
