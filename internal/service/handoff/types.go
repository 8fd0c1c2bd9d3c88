package handoff

import "support-hub-backend/internal/model"

type ErrorCode string

const (
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeInternal     ErrorCode = "internal_error"
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

const (
	EventTypeInitiate = "handoff.initiate"
	EventTypeStatus   = "handoff.status"
)

const (
	StatusAccepted  = "accepted"
	StatusFailed    = "failed"
	StatusCompleted = "completed"
)

// Event is the webhook payload external handoff partners post.
type Event struct {
	Type            string `json:"type"`
	TenantID        string `json:"tenantId"`
	ConversationRef string `json:"conversationRef,omitempty"`
	ConversationID  string `json:"conversationId,omitempty"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	Priority        int    `json:"priority,omitempty"`
	Status          string `json:"status,omitempty"`
	AgentID         string `json:"agentId,omitempty"`
	AgentName       string `json:"agentName,omitempty"`
}

// Result reports what a webhook event did. Ignored covers the malformed
// and unknown payloads the protocol treats as logged no-ops.
type Result struct {
	Action       string
	Conversation model.ConversationItem
	AgentID      string
	Ignored      bool
	IgnoreReason string
}
