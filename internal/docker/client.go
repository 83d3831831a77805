package docker

import (
	"context"
	"io"
)

// Client — возможности Docker Engine уровня клиента.
type Client interface {
	ListContainers(ctx context.Context, options map[string]any) (any, error)
	CreateContainer(ctx context.Context, options map[string]any) (any, error)
	PruneContainers(ctx context.Context, options map[string]any) (any, error)

	// PullImage скачивает образ и дожидается окончания прогресса.
	PullImage(ctx context.Context, ref string) error

	// RunContainer создаёт контейнер, подключается к выводу и запускает его.
	RunContainer(ctx context.Context, spec RunSpec) (*Stream, error)

	ListVolumes(ctx context.Context, options map[string]any) (any, error)
	CreateVolume(ctx context.Context, options map[string]any) (any, error)
	PruneVolumes(ctx context.Context, options map[string]any) (any, error)

	// Demux разделяет мультиплексированный поток на stdout и stderr.
	Demux(stdout, stderr io.Writer, src io.Reader) error

	Container(id string) ContainerHandle
	Volume(id string) VolumeHandle
	Config(id string) ConfigHandle
}

// ContainerHandle — операции над одним контейнером.
type ContainerHandle interface {
	ID() string

	Inspect(ctx context.Context) (any, error)
	Top(ctx context.Context, options map[string]any) (any, error)
	Logs(ctx context.Context, options map[string]any) (any, error)
	Changes(ctx context.Context) (any, error)
	Export(ctx context.Context) (*Blob, error)

	// Stats открывает поток JSON-кадров статистики, по одному на строку.
	Stats(ctx context.Context) (io.ReadCloser, error)

	Resize(ctx context.Context, options map[string]any) (any, error)
	Start(ctx context.Context, options map[string]any) (any, error)
	Stop(ctx context.Context, options map[string]any) (any, error)
	Restart(ctx context.Context, options map[string]any) (any, error)
	Kill(ctx context.Context, options map[string]any) (any, error)
	Update(ctx context.Context, options map[string]any) (any, error)
	Rename(ctx context.Context, options map[string]any) (any, error)
	Pause(ctx context.Context) (any, error)
	Unpause(ctx context.Context) (any, error)
	Wait(ctx context.Context, options map[string]any) (any, error)
	Remove(ctx context.Context, options map[string]any) (any, error)

	ArchiveInfo(ctx context.Context, path string) (any, error)
	GetArchive(ctx context.Context, options map[string]any) (*Blob, error)

	// Exec создаёт exec-сессию, привязанную к контейнеру.
	Exec(ctx context.Context, cmd []string) (ExecSession, error)
}

// ExecSession — созданная, но ещё не запущенная exec-сессия.
type ExecSession interface {
	ID() string
	Start(ctx context.Context) (*Stream, error)
}

// VolumeHandle — операции над одним volume.
type VolumeHandle interface {
	ID() string
	Inspect(ctx context.Context) (any, error)
	Remove(ctx context.Context, options map[string]any) (any, error)
}

// ConfigHandle — операции над одним swarm config.
type ConfigHandle interface {
	ID() string
	Inspect(ctx context.Context) (any, error)
	Remove(ctx context.Context) (any, error)
	Update(ctx context.Context, options map[string]any) (any, error)
}

// RunSpec — параметры run.
type RunSpec struct {
	Image string
	Cmd   []string

	// Create — тело запроса создания контейнера (поля container.Config,
	// плюс HostConfig, NetworkingConfig, name).
	Create map[string]any

	// Start — параметры запуска (CheckpointID, CheckpointDir).
	Start map[string]any
}

// Stream — вывод контейнера или exec-сессии.
type Stream struct {
	io.ReadCloser

	// ContainerID — контейнер, созданный run.
	ContainerID string

	// Multiplexed — вывод содержит заголовки stdcopy (контейнер без TTY).
	Multiplexed bool
}

// Blob — бинарный результат (tar-архив export / get-archive).
type Blob struct {
	io.ReadCloser

	// Name — имя для хранения: "<id>.tar", "<path>.tar".
	Name string

	// ContentType — MIME тип содержимого.
	ContentType string

	// Meta — метаданные (например, stat пути для get-archive).
	Meta any
}
