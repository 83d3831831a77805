package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dispatch — запись об обработке одного входящего сообщения узлом.
//
// Dispatch создаётся, когда:
// - сообщение отправлено в узел через API / CLI (inject)
// - Scheduler сработал по расписанию
// - Orchestrator переслал исходящее сообщение по wire
//
// Dispatch выполняется Worker'ом.
type Dispatch struct {
	// ID — уникальный идентификатор dispatch.
	ID uuid.UUID `json:"id"`

	// NodeID — узел, который обрабатывает сообщение.
	NodeID uuid.UUID `json:"node_id"`

	// State — текущее состояние.
	State DispatchState `json:"state"`

	// Input — входящее сообщение.
	Input Message `json:"input,omitempty"`

	// Action — разобранное действие (заполняется после resolve).
	Action string `json:"action,omitempty"`

	// Outcome — классифицированный результат последнего вызова.
	Outcome OutcomeKind `json:"outcome,omitempty"`

	// Emitted — количество отправленных исходящих сообщений.
	Emitted int `json:"emitted"`

	// Error — текст фатальной ошибки или ошибки удалённого вызова.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ для защиты от дубликатов.
	// Например, для scheduled dispatch: "{schedule_id}_{next_due_at}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// SourceDispatchID — dispatch, исходящее сообщение которого
	// пришло сюда по wire.
	SourceDispatchID *uuid.UUID `json:"source_dispatch_id,omitempty"`

	// StartedAt — время, когда воркер забрал сообщение.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время перехода в терминальное состояние.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность обработки.
func (d *Dispatch) Duration() time.Duration {
	if d.StartedAt == nil || d.FinishedAt == nil {
		return 0
	}
	return d.FinishedAt.Sub(*d.StartedAt)
}

// IsFinished возвращает true, если обработка завершена.
func (d *Dispatch) IsFinished() bool {
	return d.State.IsTerminal()
}

// MarkStarted переводит dispatch в IDLE: воркер забрал сообщение.
func (d *Dispatch) MarkStarted() {
	now := time.Now()
	d.State = DispatchStateIdle
	d.StartedAt = &now
}

// MarkFinished переводит dispatch в терминальное состояние.
func (d *Dispatch) MarkFinished(state DispatchState, outcome OutcomeKind, errText string) {
	now := time.Now()
	d.State = state
	d.Outcome = outcome
	d.Error = errText
	d.FinishedAt = &now
}
