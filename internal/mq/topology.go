package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeNodes  Exchange = "dockflow.nodes"
	ExchangeStatus Exchange = "dockflow.status"
	ExchangeDLQ    Exchange = "dockflow.dlq"
)

const (
	QueueNodesInput  Queue = "nodes.input"
	QueueNodesOutput Queue = "nodes.output"
	QueueDLQNodes    Queue = "dlq.nodes"
)

const (
	RoutingKeyInput    RoutingKey = "input"
	RoutingKeyOutput   RoutingKey = "output"
	RoutingKeyDLQNodes RoutingKey = "nodes"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue    Queue
	key      RoutingKey
	exchange Exchange
}

func exchanges() []exchangeDecl {
	return []exchangeDecl{
		{ExchangeNodes, amqp.ExchangeDirect},
		{ExchangeStatus, amqp.ExchangeFanout},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}
}

func queues() []queueDecl {
	dlq := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQNodes),
	}
	return []queueDecl{
		// nodes.input — сообщения, которые не удалось обработать, уходят в DLQ
		{QueueNodesInput, dlq},
		{QueueNodesOutput, dlq},
		{QueueDLQNodes, nil},
	}
}

func bindings() []bindingDecl {
	return []bindingDecl{
		{QueueNodesInput, RoutingKeyInput, ExchangeNodes},
		{QueueNodesOutput, RoutingKeyOutput, ExchangeNodes},
		{QueueDLQNodes, RoutingKeyDLQNodes, ExchangeDLQ},
	}
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges() {
			// durable, не auto-delete, не internal, без no-wait
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues() {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings() {
			if err := ch.QueueBind(string(b.queue), string(b.key), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// declareEphemeral объявляет временную очередь с именем от сервера
// и привязывает её к fanout exchange. Очередь удаляется вместе с каналом.
func declareEphemeral(ch *amqp.Channel, exchange Exchange) (string, error) {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare ephemeral queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", string(exchange), false, nil); err != nil {
		return "", fmt.Errorf("bind ephemeral queue to %s: %w", exchange, err)
	}
	return q.Name, nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  dockflow RabbitMQ topology:

    dockflow.nodes (direct)
    ├── nodes.input  [routing: input]   Consumer: Worker        DLQ: dlq.nodes
    └── nodes.output [routing: output]  Consumer: Orchestrator  DLQ: dlq.nodes

    dockflow.status (fanout)
    └── <exclusive, per API instance>   Consumer: API websocket hub

    dockflow.dlq (direct)
    └── dlq.nodes [routing: nodes]      Manual processing
`
}
