// Package notify превращает классифицированный результат в то,
// что видит flow: исходящее сообщение, индикатор узла и уведомление.
package notify

import (
	"fmt"
	"strings"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/outcome"
)

// Notifier собирает DispatchResult. Состояния не имеет.
type Notifier struct{}

// New создаёт Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Label — текст индикатора: идентификатор ресурса и короткий глагол.
func Label(id, verb string) string {
	return strings.TrimSpace(id + " " + verb)
}

// failureVerbs — текст индикатора для неуспешных результатов.
var failureVerbs = map[domain.OutcomeKind]string{
	domain.OutcomeNotFound:     "not found",
	domain.OutcomeConflict:     "conflict",
	domain.OutcomeBadParameter: "bad parameter",
	domain.OutcomeServerError:  "server error",
	domain.OutcomeUnknownError: "error",
}

// Result собирает DispatchResult для одного результата.
//
//	success          — payload = значение, зелёная точка "<id> <verb>"
//	already_in_state — payload = ошибка, зелёная точка, warn
//	not_found, conflict, bad_parameter, server_error
//	                 — payload = ошибка, красное кольцо, error
//	unknown_error    — payload не отправляется, красное кольцо, error
func (n *Notifier) Result(req *domain.ActionRequest, verb string, policy outcome.Policy, msg domain.Message, o domain.Outcome) domain.DispatchResult {
	id := req.ResourceID

	switch o.Kind {
	case domain.OutcomeSuccess:
		return domain.DispatchResult{
			Outbound: msg.WithPayload(o.Value),
			Status:   Success(id, verb),
		}

	case domain.OutcomeAlreadyInState:
		return domain.DispatchResult{
			Outbound: msg.WithPayload(o.Err),
			Status:   Success(id, verb),
			Log:      domain.LogEntry{Level: domain.LogLevelWarn, Text: policy.Describe(o, id)},
		}

	default:
		res := domain.DispatchResult{
			Status: domain.StatusUpdate{
				Fill:  domain.StatusFillRed,
				Shape: domain.StatusShapeRing,
				Text:  Label(id, failureVerbs[o.Kind]),
			},
			Log: domain.LogEntry{Level: domain.LogLevelError, Text: policy.Describe(o, id)},
		}
		if o.Kind.EmitsPayload() {
			res.Outbound = msg.WithPayload(o.Err)
		}
		return res
	}
}

// Success — зелёная точка "<id> <verb>".
func Success(id, verb string) domain.StatusUpdate {
	return domain.StatusUpdate{
		Fill:  domain.StatusFillGreen,
		Shape: domain.StatusShapeDot,
		Text:  Label(id, verb),
	}
}

// Fatal — уведомление о фатальной ошибке сообщения (MissingRequiredField,
// UnknownAction). Индикатор остаётся сброшенным.
func Fatal(err error) domain.DispatchResult {
	return domain.DispatchResult{
		Status: domain.StatusClear,
		Log:    domain.LogEntry{Level: domain.LogLevelError, Text: err.Error()},
	}
}

// Connected — поток открыт.
func Connected() domain.DispatchResult {
	return domain.DispatchResult{
		Status: domain.StatusUpdate{Fill: domain.StatusFillGreen, Shape: domain.StatusShapeDot, Text: "connected"},
	}
}

// Closed — удалённая сторона закрыла поток.
func Closed(id string) domain.DispatchResult {
	return domain.DispatchResult{
		Status: domain.StatusUpdate{Fill: domain.StatusFillRed, Shape: domain.StatusShapeRing, Text: "disconnected"},
		Log:    domain.LogEntry{Level: domain.LogLevelWarn, Text: fmt.Sprintf("Docker stats stream closed: [%s]", id)},
	}
}

// Ended — поток завершён без ошибки на нашей стороне (остановка процесса).
func Ended(id string) domain.DispatchResult {
	return domain.DispatchResult{
		Status: domain.StatusUpdate{Fill: domain.StatusFillYellow, Shape: domain.StatusShapeRing, Text: "stream ended"},
		Log:    domain.LogEntry{Level: domain.LogLevelWarn, Text: fmt.Sprintf("Docker stats stream ended: [%s]", id)},
	}
}

// Errored — поток прервался ошибкой чтения.
func Errored(id string, err error) domain.DispatchResult {
	return domain.DispatchResult{
		Status: domain.StatusUpdate{Fill: domain.StatusFillRed, Shape: domain.StatusShapeRing, Text: "disconnected"},
		Log:    domain.LogEntry{Level: domain.LogLevelError, Text: fmt.Sprintf("Docker stats stream error: [%s] %v", id, err)},
	}
}

// Diagnostic — неблокирующее уведомление уровня error
// (stderr exec, битый кадр статистики).
func Diagnostic(text string) domain.DispatchResult {
	return domain.DispatchResult{
		Log: domain.LogEntry{Level: domain.LogLevelError, Text: text},
	}
}

// Frame — исходящее сообщение для одного кадра потока.
// Каждый кадр получает новый _msgid.
func Frame(event map[string]any) domain.Message {
	msg := domain.NewMessage(event)
	for key, field := range map[string]string{
		"type":     "Type",
		"action":   "Action",
		"time":     "time",
		"timeNano": "timeNano",
	} {
		if v, ok := event[field]; ok {
			msg[key] = v
		}
	}
	return msg
}
