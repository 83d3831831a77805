package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrSourceNodeNotFound — узел-источник удалён до пересылки.
	ErrSourceNodeNotFound = errors.New("source node not found")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
)
