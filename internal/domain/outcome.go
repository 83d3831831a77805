package domain

// OutcomeKind — классифицированный результат удалённого вызова.
type OutcomeKind string

const (
	// OutcomeSuccess — вызов завершился успешно.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeAlreadyInState — ресурс уже в нужном состоянии (304).
	OutcomeAlreadyInState OutcomeKind = "already_in_state"

	// OutcomeNotFound — ресурс или путь не найден (404).
	OutcomeNotFound OutcomeKind = "not_found"

	// OutcomeConflict — конфликт имени или ресурс занят (409).
	OutcomeConflict OutcomeKind = "conflict"

	// OutcomeBadParameter — некорректные параметры (400) для list / create.
	OutcomeBadParameter OutcomeKind = "bad_parameter"

	// OutcomeServerError — ошибка сервера (500).
	OutcomeServerError OutcomeKind = "server_error"

	// OutcomeUnknownError — неклассифицированная ошибка.
	OutcomeUnknownError OutcomeKind = "unknown_error"
)

// EmitsPayload возвращает true, если результат отправляется дальше по flow.
// Неклассифицированные ошибки не отправляются.
func (k OutcomeKind) EmitsPayload() bool {
	return k != OutcomeUnknownError
}

// IsFailure возвращает true для всех результатов, кроме успеха.
func (k OutcomeKind) IsFailure() bool {
	return k != OutcomeSuccess
}

// Outcome — результат классификации.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Value — значение успешного вызова, передаётся без изменений.
	Value any `json:"-"`

	// Err — исходная ошибка для неуспешных результатов.
	Err error `json:"-"`

	// StatusCode — HTTP статус ошибки (0, если неизвестен).
	StatusCode int `json:"status_code,omitempty"`

	// Reason — текст ошибки от Docker Engine.
	Reason string `json:"reason,omitempty"`
}

// DispatchResult — то, что уходит обратно во flow после классификации.
type DispatchResult struct {
	// Outbound — исходящее сообщение; nil, если payload подавлен.
	Outbound Message `json:"outbound,omitempty"`

	// Status — обновление индикатора.
	Status StatusUpdate `json:"status"`

	// Log — уведомление узла.
	Log LogEntry `json:"log"`

	// Events — промежуточные результаты потоковых операций.
	Events []Message `json:"events,omitempty"`
}
