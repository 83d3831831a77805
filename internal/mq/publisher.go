package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/dockflow/internal/domain"
)

// MessageType — тип конверта.
type MessageType string

const (
	MessageTypeNodeInput  MessageType = "node.input"
	MessageTypeNodeOutput MessageType = "node.output"
	MessageTypeNodeStatus MessageType = "node.status"
)

// Envelope — конверт сообщения в очереди.
type Envelope struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NodeInputPayload — dispatch поставлен в очередь узла.
type NodeInputPayload struct {
	DispatchID uuid.UUID `json:"dispatch_id"`
	NodeID     uuid.UUID `json:"node_id"`
}

// NodeOutputPayload — узел отдал сообщение во flow.
// Seq — порядковый номер сообщения внутри dispatch, начиная с 1.
type NodeOutputPayload struct {
	NodeID     uuid.UUID      `json:"node_id"`
	DispatchID uuid.UUID      `json:"dispatch_id"`
	Seq        int64          `json:"seq"`
	Message    domain.Message `json:"message"`
}

// NodeStatusPayload — индикатор и уведомление узла.
type NodeStatusPayload struct {
	NodeID     uuid.UUID            `json:"node_id"`
	DispatchID uuid.UUID            `json:"dispatch_id"`
	Status     *domain.StatusUpdate `json:"status,omitempty"`
	Log        *domain.LogEntry     `json:"log,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Publisher публикует конверты.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

func newEnvelope(t MessageType, payload any) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publish отправляет конверт в exchange.
// persistent=false — для статусов, которые не нужно переживать рестарт.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, env *Envelope, persistent bool) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(key), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: mode,
			MessageId:    env.ID,
			Type:         string(env.Type),
			Timestamp:    env.Timestamp,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, key, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", key,
			"message_id", env.ID,
			"type", env.Type,
		)
		return nil
	})
}

// PublishNodeInput сообщает воркерам о новом dispatch.
func (p *Publisher) PublishNodeInput(ctx context.Context, dispatchID, nodeID uuid.UUID) error {
	env := newEnvelope(MessageTypeNodeInput, NodeInputPayload{DispatchID: dispatchID, NodeID: nodeID})
	return p.Publish(ctx, ExchangeNodes, RoutingKeyInput, env, true)
}

// PublishNodeOutput отправляет исходящее сообщение узла оркестратору.
func (p *Publisher) PublishNodeOutput(ctx context.Context, payload NodeOutputPayload) error {
	return p.Publish(ctx, ExchangeNodes, RoutingKeyOutput, newEnvelope(MessageTypeNodeOutput, payload), true)
}

// PublishNodeStatus рассылает статус всем подписчикам.
func (p *Publisher) PublishNodeStatus(ctx context.Context, payload NodeStatusPayload) error {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}
	return p.Publish(ctx, ExchangeStatus, "", newEnvelope(MessageTypeNodeStatus, payload), false)
}
