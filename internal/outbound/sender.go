package outbound

import (
	"context"
	"errors"
)

// Message is one customer-facing payload headed for the messaging channel.
type Message struct {
	TenantID       string `json:"tenantId"`
	ConversationID string `json:"conversationId"`
	CustomerPhone  string `json:"customerPhone,omitempty"`
	Kind           string `json:"kind"`
	Body           string `json:"body"`
	SentAt         string `json:"sentAt"`
}

// Message kinds the coordination layer emits.
const (
	KindTransferring  = "transferring"
	KindRetryGuidance = "retry_guidance"
	KindAgentReply    = "agent_reply"
)

var (
	ErrRateLimited   = errors.New("outbound: rate limited")
	ErrQuotaExceeded = errors.New("outbound: daily quota exceeded")
	ErrCircuitOpen   = errors.New("outbound: circuit open")
)

// Sender delivers messages to the external customer channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}
