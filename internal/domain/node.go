package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResourceKind — вид ресурса Docker Engine, которым управляет узел.
type ResourceKind string

const (
	ResourceContainer ResourceKind = "container"
	ResourceVolume    ResourceKind = "volume"
	ResourceConfig    ResourceKind = "config"
)

// ResourceKinds — все поддерживаемые виды ресурсов.
var ResourceKinds = []ResourceKind{ResourceContainer, ResourceVolume, ResourceConfig}

// IsValid проверяет, что вид ресурса известен.
func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceContainer, ResourceVolume, ResourceConfig:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление ResourceKind.
func (k ResourceKind) String() string {
	return string(k)
}

// Типы выражений Property.
const (
	PropertyStr  = "str"
	PropertyNum  = "num"
	PropertyBool = "bool"
	PropertyJSON = "json"
	PropertyMsg  = "msg"
	PropertyEnv  = "env"
	PropertyTmpl = "tmpl"
)

// Property — типизированное выражение, вычисляемое для каждого сообщения.
//
// Примеры:
//
//	{Value: "abc", Type: "str"}                    — литерал
//	{Value: "payload.id", Type: "msg"}             — поле сообщения
//	{Value: `{"Labels":{"a":"b"}}`, Type: "json"}  — структура
//	{Value: "{{ .msg.topic }}", Type: "tmpl"}      — Go template
type Property struct {
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
}

// IsBlank возвращает true, если выражение не задано.
func (p Property) IsBlank() bool {
	return strings.TrimSpace(p.Value) == ""
}

// Node — экземпляр узла во flow: статическая конфигурация,
// которая комбинируется с каждым входящим сообщением.
type Node struct {
	// ID — уникальный идентификатор узла.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя узла.
	Name string `json:"name"`

	// Kind — вид ресурса: container, volume, config.
	Kind ResourceKind `json:"kind"`

	// Action — статически заданное действие (inspect, start, list, ...).
	// Пустое значение означает, что действие берётся из сообщения.
	Action string `json:"action,omitempty"`

	// ResourceID — статически заданный идентификатор ресурса.
	ResourceID string `json:"resource_id,omitempty"`

	// ResourceExpr — выражение для идентификатора ресурса.
	ResourceExpr Property `json:"resource_expr,omitempty"`

	// Command — команда для exec / run, путь для archive-info.
	Command string `json:"command,omitempty"`

	// Options — параметры операции (update, rename, create, ...).
	Options Property `json:"options,omitempty"`

	// Image — образ для pull / run.
	Image Property `json:"image,omitempty"`

	// PullImage — скачать образ перед run.
	PullImage bool `json:"pull_image,omitempty"`

	// CreateOptions — параметры создания контейнера для run.
	CreateOptions Property `json:"create_options,omitempty"`

	// StartOptions — параметры запуска контейнера для run.
	StartOptions Property `json:"start_options,omitempty"`

	// Wires — узлы, которые получают исходящие сообщения этого узла.
	Wires []uuid.UUID `json:"wires,omitempty"`

	// CreatedAt — время создания узла.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasWires возвращает true, если у узла есть получатели.
func (n *Node) HasWires() bool {
	return len(n.Wires) > 0
}
