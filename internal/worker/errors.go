package worker

import "errors"

// Ошибки воркера.
var (
	// ErrDispatchNotFound — dispatch не найден в БД.
	ErrDispatchNotFound = errors.New("dispatch not found")

	// ErrDispatchNotQueued — dispatch уже забрал другой воркер.
	ErrDispatchNotQueued = errors.New("dispatch is not in QUEUED state")

	// ErrNodeNotFound — узел dispatch удалён.
	ErrNodeNotFound = errors.New("node not found")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
