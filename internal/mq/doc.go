// Package mq — транспорт между процессами dockflow поверх RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и отдельными каналами
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация конвертов Envelope
//   - consumer.go   — потребление очередей, в том числе временных
//
// Типы сообщений:
//   - node.input   — сообщение поставлено узлу (dispatch в статусе QUEUED)
//   - node.output  — узел отдал сообщение во flow
//   - node.status  — индикатор и уведомления узла
//
// Exchanges:
//   - dockflow.nodes  (direct) — input / output
//   - dockflow.status (fanout) — статусы для API и websocket клиентов
//   - dockflow.dlq    (direct) — dead letter
package mq
