package outcome

import (
	"net/http"

	"github.com/shaiso/dockflow/internal/domain"
)

// DefaultUnknown — текст неклассифицированной ошибки.
const DefaultUnknown = "System Error: [{id}] [{code}] {reason}"

const serverErrorText = "Server Error: [{id}] [{code}] {reason}"

// ContainerHandle — операции над существующим контейнером: 404 и 500.
func ContainerHandle() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusNotFound:            {domain.OutcomeNotFound, "No such container: [{id}]"},
			http.StatusInternalServerError: {domain.OutcomeServerError, serverErrorText},
		},
		Unknown: DefaultUnknown,
	}
}

// ContainerRename — как ContainerHandle плюс конфликт имени.
func ContainerRename() Policy {
	return ContainerHandle().With(http.StatusConflict, domain.OutcomeConflict,
		"Name already in use: [{id}] [{code}] {reason}")
}

// ContainerArchive — archive-info / get-archive: 404 означает и отсутствие пути.
func ContainerArchive() Policy {
	return ContainerHandle().With(http.StatusNotFound, domain.OutcomeNotFound,
		"Container or path does not exist: [{id}] {reason}")
}

// ContainerListing — list / create: 400 и 500.
func ContainerListing() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusBadRequest:          {domain.OutcomeBadParameter, "Bad parameter: [{id}] {reason}"},
			http.StatusInternalServerError: {domain.OutcomeServerError, serverErrorText},
		},
		Unknown: DefaultUnknown,
	}
}

// ContainerRun — run: ошибка запуска классифицируется и отправляется дальше.
func ContainerRun() Policy {
	return ContainerListing().
		With(http.StatusNotFound, domain.OutcomeNotFound, "No such image: [{id}] {reason}").
		With(http.StatusConflict, domain.OutcomeConflict, "Name already in use: [{id}] [{code}] {reason}")
}

// ImagePull — pull: 404 и 500.
func ImagePull() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusNotFound:            {domain.OutcomeNotFound, "No such image: [{id}] {reason}"},
			http.StatusInternalServerError: {domain.OutcomeServerError, serverErrorText},
		},
		Unknown: DefaultUnknown,
	}
}

// VolumeListing — list volumes: 400 и 500.
func VolumeListing() Policy {
	return ContainerListing()
}

// ServerOnly — распознаётся только 500 (операции над volumes).
func ServerOnly() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusInternalServerError: {domain.OutcomeServerError, serverErrorText},
		},
		Unknown: DefaultUnknown,
	}
}

// VolumeRemove — remove volume: 404, 409, 500.
func VolumeRemove() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusNotFound:            {domain.OutcomeNotFound, "No such volume or volume driver: [{id}]"},
			http.StatusConflict:            {domain.OutcomeConflict, "Volume is in use and cannot be removed: [{id}]"},
			http.StatusInternalServerError: {domain.OutcomeServerError, "Server error: [{id}] [{code}] {reason}"},
		},
		Unknown: DefaultUnknown,
	}
}

// ConfigInspect — config: распознаётся только 304.
func ConfigInspect() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusNotModified: {domain.OutcomeAlreadyInState, `Unable to start config "{id}", config is already started.`},
		},
		Unknown: "Error starting config: [{id}] [{code}] {reason}",
	}
}

// ConfigRemove — remove / update config: распознаётся только 304.
func ConfigRemove() Policy {
	return Policy{
		Rules: map[int]Rule{
			http.StatusNotModified: {domain.OutcomeAlreadyInState, `Unable to stop config "{id}", config is already removed.`},
		},
		Unknown: "Error removing config: [{id}] [{code}] {reason}",
	}
}
