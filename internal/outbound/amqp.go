package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const defaultExchange = "support.outbound"

// AMQPSender publishes outbound customer messages to a topic exchange.
// Routing key is outbound.{tenantId} so per-tenant delivery workers can
// bind selectively.
type AMQPSender struct {
	conn     *amqp091.Connection
	exchange string
}

func NewAMQPSender(url, exchange string) (*AMQPSender, error) {
	if exchange == "" {
		exchange = defaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("outbound: dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbound: open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbound: declare exchange: %w", err)
	}

	return &AMQPSender{
		conn:     conn,
		exchange: exchange,
	}, nil
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("outbound: open channel: %w", err)
	}
	defer ch.Close()

	if msg.SentAt == "" {
		msg.SentAt = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("outbound: marshal message: %w", err)
	}

	key := fmt.Sprintf("outbound.%s", msg.TenantID)
	err = ch.PublishWithContext(
		ctx, s.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     uuid.NewString(),
			CorrelationId: msg.ConversationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("outbound: publish: %w", err)
	}
	return nil
}

func (s *AMQPSender) Close() error {
	return s.conn.Close()
}

// LogSender is the fallback when no broker is configured: it logs and
// drops. Useful for local development and tests.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	log.Printf("outbound (dropped, no broker): tenant=%s conversation=%s kind=%s", msg.TenantID, msg.ConversationID, msg.Kind)
	return nil
}

func (s *LogSender) Close() error {
	return nil
}
