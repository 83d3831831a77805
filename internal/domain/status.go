package domain

// DispatchState — состояние обработки одного входящего сообщения.
//
// Жизненный цикл:
//
//	QUEUED → IDLE → RESOLVING → ROUTING → INVOKING → COMPLETED
//	                                              ↘ STREAM_ACTIVE → STREAM_CLOSED
//	              (или) → FAILED (MissingRequiredField / UnknownAction)
//
// QUEUED существует только у записи в БД: сообщение принято,
// но воркер его ещё не забрал.
type DispatchState string

const (
	// DispatchStateQueued — сообщение ожидает воркера.
	DispatchStateQueued DispatchState = "QUEUED"

	// DispatchStateIdle — воркер забрал сообщение, статус узла сброшен.
	DispatchStateIdle DispatchState = "IDLE"

	// DispatchStateResolving — разбор параметров из конфигурации и сообщения.
	DispatchStateResolving DispatchState = "RESOLVING"

	// DispatchStateRouting — выбор операции по (kind, action).
	DispatchStateRouting DispatchState = "ROUTING"

	// DispatchStateInvoking — удалённый вызов в процессе.
	DispatchStateInvoking DispatchState = "INVOKING"

	// DispatchStateCompleted — результат классифицирован и отправлен.
	DispatchStateCompleted DispatchState = "COMPLETED"

	// DispatchStateStreamActive — потоковая операция отдаёт кадры.
	DispatchStateStreamActive DispatchState = "STREAM_ACTIVE"

	// DispatchStateStreamClosed — поток закрыт, завершился или упал.
	DispatchStateStreamClosed DispatchState = "STREAM_CLOSED"

	// DispatchStateFailed — фатальная ошибка до удалённого вызова.
	DispatchStateFailed DispatchState = "FAILED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s DispatchState) IsTerminal() bool {
	switch s {
	case DispatchStateCompleted, DispatchStateStreamClosed, DispatchStateFailed:
		return true
	default:
		return false
	}
}

// StatusFill — цвет индикатора узла.
type StatusFill string

const (
	StatusFillNone   StatusFill = ""
	StatusFillGreen  StatusFill = "green"
	StatusFillRed    StatusFill = "red"
	StatusFillYellow StatusFill = "yellow"
)

// StatusShape — форма индикатора узла.
type StatusShape string

const (
	StatusShapeNone StatusShape = ""
	StatusShapeDot  StatusShape = "dot"
	StatusShapeRing StatusShape = "ring"
)

// StatusUpdate — обновление визуального индикатора узла.
//
// Нулевое значение (StatusClear) сбрасывает индикатор.
type StatusUpdate struct {
	Fill  StatusFill  `json:"fill,omitempty"`
	Shape StatusShape `json:"shape,omitempty"`
	Text  string      `json:"text,omitempty"`
}

// StatusClear — пустой статус, отправляется перед обработкой каждого сообщения.
var StatusClear = StatusUpdate{}

// IsClear возвращает true для сброса индикатора.
func (s StatusUpdate) IsClear() bool {
	return s == StatusClear
}

// Level возвращает уровень индикатора: ok, warn, error или none.
func (s StatusUpdate) Level() string {
	switch s.Fill {
	case StatusFillGreen:
		return "ok"
	case StatusFillYellow:
		return "warn"
	case StatusFillRed:
		return "error"
	default:
		return "none"
	}
}

// LogLevel — уровень уведомления узла.
type LogLevel string

const (
	LogLevelNone  LogLevel = ""
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry — уведомление узла (node.warn / node.error).
type LogEntry struct {
	Level LogLevel `json:"level,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// IsEmpty возвращает true, если уведомления нет.
func (e LogEntry) IsEmpty() bool {
	return e.Level == LogLevelNone
}
