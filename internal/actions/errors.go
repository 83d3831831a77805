package actions

import (
	"errors"
	"fmt"

	"github.com/shaiso/dockflow/internal/domain"
)

var (
	// ErrUnknownAction — действие не зарегистрировано для вида ресурса.
	ErrUnknownAction = errors.New("unknown action")

	// ErrStreamClosed — удалённая сторона закрыла поток.
	ErrStreamClosed = errors.New("stream closed")
)

// UnknownActionError — действие, которого нет в таблице.
type UnknownActionError struct {
	Kind   domain.ResourceKind
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("Called with an unknown action: %s", e.Action)
}

func (e *UnknownActionError) Unwrap() error {
	return ErrUnknownAction
}
