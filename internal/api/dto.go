package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
)

// Node DTOs

// NodeRequest — запрос на создание или замену узла.
type NodeRequest struct {
	Name          string          `json:"name"`
	Kind          string          `json:"kind"`
	Action        string          `json:"action,omitempty"`
	ResourceID    string          `json:"resource_id,omitempty"`
	ResourceExpr  domain.Property `json:"resource_expr,omitempty"`
	Command       string          `json:"command,omitempty"`
	Options       domain.Property `json:"options,omitempty"`
	Image         domain.Property `json:"image,omitempty"`
	PullImage     bool            `json:"pull_image,omitempty"`
	CreateOptions domain.Property `json:"create_options,omitempty"`
	StartOptions  domain.Property `json:"start_options,omitempty"`
	Wires         []uuid.UUID     `json:"wires,omitempty"`
}

// apply переносит поля запроса в узел.
func (r *NodeRequest) apply(n *domain.Node) {
	n.Name = r.Name
	n.Kind = domain.ResourceKind(r.Kind)
	n.Action = r.Action
	n.ResourceID = r.ResourceID
	n.ResourceExpr = r.ResourceExpr
	n.Command = r.Command
	n.Options = r.Options
	n.Image = r.Image
	n.PullImage = r.PullImage
	n.CreateOptions = r.CreateOptions
	n.StartOptions = r.StartOptions
	n.Wires = r.Wires
}

// ApplyResponse — результат apply набора узлов.
type ApplyResponse struct {
	Nodes []domain.Node `json:"nodes"`
}

// Inject DTOs

// InjectRequest — сообщение для отправки в узел.
//
// Message — поля сообщения целиком (topic, action, containerId, ...).
// Payload — короткая форма: {"payload": ...}.
type InjectRequest struct {
	Message        map[string]any `json:"message,omitempty"`
	Payload        any            `json:"payload,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// message собирает входящее сообщение с новым _msgid.
func (r *InjectRequest) message() domain.Message {
	msg := domain.Message{}
	for k, v := range r.Message {
		msg[k] = v
	}
	if r.Payload != nil {
		msg[domain.MsgKeyPayload] = r.Payload
	}
	if _, ok := msg[domain.MsgKeyPayload]; !ok {
		msg[domain.MsgKeyPayload] = time.Now().UnixMilli()
	}
	if msg.ID() == "" {
		msg[domain.MsgKeyID] = uuid.NewString()
	}
	return msg
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Message     map[string]any `json:"message,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	Message     *map[string]any `json:"message,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// Discovery DTOs

// SearchRequest — тело /containerSearch и /volumeSearch.
// ID — идентификатор узла-конфигурации в редакторе, сервером не используется.
type SearchRequest struct {
	ID      string         `json:"id,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}
