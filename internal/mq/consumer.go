package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPermanent — сообщение нельзя обработать повторно, оно уходит в DLQ.
var ErrPermanent = errors.New("permanent failure")

// Handler обрабатывает одно сообщение.
//
// nil — ack. Ошибка с ErrPermanent — nack в DLQ. Любая другая ошибка
// возвращает сообщение в очередь один раз, повторная доставка уходит в DLQ.
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленный конверт.
type Delivery struct {
	Envelope Envelope
	Raw      amqp.Delivery
}

// ConsumerConfig — настройки Consumer.
type ConsumerConfig struct {
	// Queue — durable очередь. Пустая строка вместе с Exchange — временная
	// очередь, привязанная к fanout exchange.
	Queue string

	// Exchange — fanout exchange для временной очереди.
	Exchange Exchange

	Handler  Handler
	Prefetch int
}

// Consumer читает очередь и вызывает Handler.
type Consumer struct {
	conn   *Connection
	logger *slog.Logger
	cfg    ConsumerConfig
	cancel context.CancelFunc
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Queue
	if name == "" {
		name = string(cfg.Exchange)
	}
	return &Consumer{
		conn:   conn,
		logger: logger.With("queue", name),
		cfg:    cfg,
	}
}

// Start блокируется до отмены контекста или Stop.
// Переживает переподключения соединения.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer interrupted, waiting for reconnect", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
			c.logger.Info("reconnected, restarting consumer")
		}
	}
}

// Stop останавливает Consumer.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Consumer) consumeOnce(ctx context.Context) error {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	queue := c.cfg.Queue
	exclusive := false
	if queue == "" {
		if queue, err = declareEphemeral(ch, c.cfg.Exchange); err != nil {
			return err
		}
		exclusive = true
	}

	// ack вручную
	deliveries, err := ch.Consume(queue, "", false, exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	c.logger.Info("consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var env Envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		c.logger.Error("failed to unmarshal envelope", "error", err, "body", string(raw.Body))
		_ = raw.Nack(false, false)
		return
	}

	logger := c.logger.With("message_id", env.ID, "type", env.Type)
	logger.Debug("received message")

	err := c.cfg.Handler(ctx, &Delivery{Envelope: env, Raw: raw})
	if err == nil {
		_ = raw.Ack(false)
		return
	}

	requeue := !errors.Is(err, ErrPermanent) && !raw.Redelivered
	logger.Error("handler failed", "error", err, "requeue", requeue)
	_ = raw.Nack(false, requeue)
}

// ParsePayload раскладывает payload конверта в T.
func ParsePayload[T any](env *Envelope) (T, error) {
	var out T

	b, err := json.Marshal(env.Payload)
	if err != nil {
		return out, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: unmarshal payload: %v", ErrPermanent, err)
	}
	return out, nil
}
