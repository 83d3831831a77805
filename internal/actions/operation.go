package actions

import (
	"context"

	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/outcome"
)

// Mode — режим выполнения операции.
type Mode int

const (
	ModeUnary Mode = iota
	ModeStream
)

func (m Mode) String() string {
	if m == ModeStream {
		return "stream"
	}
	return "unary"
}

// Call — всё, что нужно операции: клиент и разобранный запрос.
type Call struct {
	Client  docker.Client
	Request *domain.ActionRequest
}

// Emitter получает результаты потоковой операции.
//
// Методы вызываются из одной горутины в порядке поступления данных.
type Emitter interface {
	// Connected — поток открыт.
	Connected()

	// Frame — один кадр потока (stats).
	Frame(event map[string]any)

	// Result — классифицируемый результат: кусок stdout, буфер exec,
	// ошибка запуска.
	Result(value any, err error)

	// Diagnostic — неблокирующее уведомление уровня error.
	Diagnostic(text string)

	// ParseError — кадр не разобран и отброшен.
	ParseError(err error)
}

// UnaryFunc — операция с одним результатом.
type UnaryFunc func(ctx context.Context, c *Call) (any, error)

// StreamFunc — потоковая операция.
//
// Возврат nil означает штатное завершение. ErrStreamClosed — поток закрыт
// удалённой стороной. Ошибка контекста — поток завершён остановкой.
// Любая другая ошибка — обрыв.
type StreamFunc func(ctx context.Context, c *Call, e Emitter) error

// Operation — описание одного действия.
type Operation struct {
	Action string
	Mode   Mode

	// Label — глагол индикатора: "<id> <label>".
	Label string

	Policy outcome.Policy
	Unary  UnaryFunc
	Stream StreamFunc
}

func unary(action, label string, policy outcome.Policy, fn UnaryFunc) *Operation {
	return &Operation{Action: action, Mode: ModeUnary, Label: label, Policy: policy, Unary: fn}
}

func stream(action, label string, policy outcome.Policy, fn StreamFunc) *Operation {
	return &Operation{Action: action, Mode: ModeStream, Label: label, Policy: policy, Stream: fn}
}
