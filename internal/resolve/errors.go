package resolve

import (
	"errors"
	"fmt"

	"github.com/shaiso/dockflow/internal/domain"
)

var (
	// ErrMissingRequiredField — обязательное поле не найдено ни в одном источнике.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidExpression — выражение узла не вычисляется.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrInvalidField — значение поля имеет неподходящий тип.
	ErrInvalidField = errors.New("invalid field value")

	// ErrUnknownKind — для вида ресурса нет таблицы полей.
	ErrUnknownKind = errors.New("unknown resource kind")
)

// MissingFieldError — ошибка отсутствующего поля с контекстом.
type MissingFieldError struct {
	Kind   domain.ResourceKind
	Action string
	Field  string
}

// Error реализует интерфейс error.
func (e *MissingFieldError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %s %q", e.Kind, ErrMissingRequiredField, e.Field)
	}
	return fmt.Sprintf("%s %s: %s %q", e.Kind, e.Action, ErrMissingRequiredField, e.Field)
}

// Unwrap возвращает ErrMissingRequiredField.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingRequiredField
}
