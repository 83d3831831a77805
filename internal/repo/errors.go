package repo

import "errors"

var (
	// ErrNotFound — строки нет.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — нарушен уникальный ключ (имя узла, idempotency key).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — dispatch не в том состоянии (например, уже забран воркером).
	ErrInvalidState = errors.New("invalid state")
)
