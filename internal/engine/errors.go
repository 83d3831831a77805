package engine

import "errors"

// Ошибки валидации определения узла.
var (
	// ErrEmptyNodeName — узел без имени.
	ErrEmptyNodeName = errors.New("node has empty name")

	// ErrDuplicateNodeName — несколько узлов с одинаковым именем в одном наборе.
	ErrDuplicateNodeName = errors.New("duplicate node name")

	// ErrUnknownKind — неизвестный вид ресурса.
	ErrUnknownKind = errors.New("unknown resource kind")

	// ErrUnknownAction — действие отсутствует в таблице вида ресурса.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownPropertyType — неизвестный тип выражения.
	ErrUnknownPropertyType = errors.New("unknown property type")

	// ErrEmptyBundle — файл не содержит узлов.
	ErrEmptyBundle = errors.New("node bundle is empty")
)

// Ошибки вычисления выражений.
var (
	// ErrInvalidProperty — значение выражения не соответствует его типу.
	ErrInvalidProperty = errors.New("invalid property value")

	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Node    string // имя узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Node != "" {
		return "node " + e.Node + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(node, field, message string, err error) *ValidationError {
	return &ValidationError{
		Node:    node,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
