package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
)

// ErrUnavailable — Docker daemon недоступен ни по одному адресу.
var ErrUnavailable = errors.New("docker daemon unavailable")

// Adapter реализует Client поверх Docker SDK.
type Adapter struct {
	api    *client.Client
	logger *slog.Logger
}

// Config — параметры подключения.
type Config struct {
	// Host — явный адрес daemon (tcp://..., unix://...).
	// Пустой: DOCKER_HOST и остальные переменные окружения.
	Host string

	// PingTimeout — таймаут проверки подключения.
	PingTimeout time.Duration

	Logger *slog.Logger
}

// New подключается к Docker daemon.
//
// Порядок: Config.Host, затем окружение (DOCKER_HOST, DOCKER_TLS_VERIFY, ...),
// затем стандартные сокеты Docker Desktop / Linux / Colima.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var candidates [][]client.Opt
	if cfg.Host != "" {
		candidates = append(candidates, []client.Opt{client.WithHost(cfg.Host)})
	} else {
		candidates = append(candidates, []client.Opt{client.FromEnv})
		for _, socket := range defaultSockets() {
			candidates = append(candidates, []client.Opt{client.WithHost(socket)})
		}
	}

	for _, opts := range candidates {
		opts = append(opts, client.WithAPIVersionNegotiation(), WithStatusCapture())
		api, err := client.NewClientWithOpts(opts...)
		if err != nil {
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		_, err = api.Ping(pingCtx)
		cancel()
		if err != nil {
			api.Close()
			continue
		}

		cfg.Logger.Info("docker client connected", "host", api.DaemonHost(), "api_version", api.ClientVersion())
		return NewFromClient(api, cfg.Logger), nil
	}

	return nil, ErrUnavailable
}

// NewFromClient оборачивает готовый клиент SDK.
func NewFromClient(api *client.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{api: api, logger: logger}
}

func defaultSockets() []string {
	home := os.Getenv("HOME")
	return []string{
		"unix://" + home + "/.docker/run/docker.sock",
		"unix:///var/run/docker.sock",
		"unix://" + home + "/.colima/docker.sock",
	}
}

// Ping проверяет доступность daemon.
func (a *Adapter) Ping(ctx context.Context) error {
	ctx = trackStatus(ctx)
	_, err := a.api.Ping(ctx)
	return wrap(ctx, err)
}

// Close закрывает клиент SDK.
func (a *Adapter) Close() error {
	return a.api.Close()
}

// ListContainers возвращает все контейнеры, включая остановленные.
func (a *Adapter) ListContainers(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	args, err := filtersFrom(options)
	if err != nil {
		return nil, err
	}
	list, err := a.api.ContainerList(ctx, container.ListOptions{
		All:     boolOpt(options, "all", true),
		Filters: args,
	})
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return list, nil
}

// CreateContainer создаёт контейнер по телу запроса Docker API.
func (a *Adapter) CreateContainer(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	cfg, hostCfg, netCfg, name, err := createBody(options)
	if err != nil {
		return nil, err
	}
	resp, err := a.api.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return resp, nil
}

// PruneContainers удаляет остановленные контейнеры.
func (a *Adapter) PruneContainers(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	args, err := filtersFrom(options)
	if err != nil {
		return nil, err
	}
	report, err := a.api.ContainersPrune(ctx, args)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return report, nil
}

// PullImage скачивает образ. Ошибка внутри прогресса тоже возвращается.
func (a *Adapter) PullImage(ctx context.Context, ref string) error {
	ctx = trackStatus(ctx)
	rc, err := a.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return wrap(ctx, err)
	}
	defer rc.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			code := jerr.Code
			if code == 0 {
				code = 500
			}
			return NewRemoteError(code, jerr.Message)
		}
		return wrap(ctx, err)
	}
	return nil
}

// RunContainer создаёт контейнер, подключается к stdout/stderr и запускает его.
// Поток закрывается, когда контейнер завершается.
func (a *Adapter) RunContainer(ctx context.Context, spec RunSpec) (*Stream, error) {
	ctx = trackStatus(ctx)
	cfg, hostCfg, netCfg, name, err := createBody(spec.Create)
	if err != nil {
		return nil, err
	}
	cfg.Image = spec.Image
	if len(spec.Cmd) > 0 {
		cfg.Cmd = spec.Cmd
	}
	cfg.AttachStdout = true
	cfg.AttachStderr = true

	created, err := a.api.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return nil, wrap(ctx, err)
	}

	hijacked, err := a.api.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return nil, wrap(ctx, err)
	}

	var startOpts container.StartOptions
	if err := decodeInto(spec.Start, &startOpts); err != nil {
		hijacked.Close()
		return nil, err
	}
	if err := a.api.ContainerStart(ctx, created.ID, startOpts); err != nil {
		hijacked.Close()
		return nil, wrap(ctx, err)
	}

	a.logger.Debug("container started", "container_id", created.ID, "image", spec.Image)

	return &Stream{
		ReadCloser:  &hijackedReader{Reader: hijacked.Reader, close: hijacked.Close},
		ContainerID: created.ID,
		Multiplexed: !cfg.Tty,
	}, nil
}

// ListVolumes возвращает список volumes.
func (a *Adapter) ListVolumes(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	args, err := filtersFrom(options)
	if err != nil {
		return nil, err
	}
	resp, err := a.api.VolumeList(ctx, volume.ListOptions{Filters: args})
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return resp, nil
}

// CreateVolume создаёт volume (Name, Driver, DriverOpts, Labels).
func (a *Adapter) CreateVolume(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	var opts volume.CreateOptions
	if err := decodeInto(options, &opts); err != nil {
		return nil, err
	}
	vol, err := a.api.VolumeCreate(ctx, opts)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return vol, nil
}

// PruneVolumes удаляет неиспользуемые volumes.
func (a *Adapter) PruneVolumes(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	args, err := filtersFrom(options)
	if err != nil {
		return nil, err
	}
	report, err := a.api.VolumesPrune(ctx, args)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return report, nil
}

// Demux разделяет поток stdcopy на stdout и stderr.
func (a *Adapter) Demux(stdout, stderr io.Writer, src io.Reader) error {
	_, err := stdcopy.StdCopy(stdout, stderr, src)
	return err
}

// Container возвращает handle контейнера.
func (a *Adapter) Container(id string) ContainerHandle {
	return containerHandle{api: a.api, id: id}
}

// Volume возвращает handle volume.
func (a *Adapter) Volume(id string) VolumeHandle {
	return volumeHandle{api: a.api, id: id}
}

// Config возвращает handle swarm config.
func (a *Adapter) Config(id string) ConfigHandle {
	return configHandle{api: a.api, id: id}
}

// createBody разбирает тело запроса создания контейнера.
func createBody(options map[string]any) (*container.Config, *container.HostConfig, *network.NetworkingConfig, string, error) {
	cfg := &container.Config{}
	if err := decodeInto(options, cfg); err != nil {
		return nil, nil, nil, "", err
	}

	var hostCfg *container.HostConfig
	if raw, ok := options["HostConfig"]; ok && raw != nil {
		hostCfg = &container.HostConfig{}
		if err := decodeInto(raw, hostCfg); err != nil {
			return nil, nil, nil, "", err
		}
	}

	var netCfg *network.NetworkingConfig
	if raw, ok := options["NetworkingConfig"]; ok && raw != nil {
		netCfg = &network.NetworkingConfig{}
		if err := decodeInto(raw, netCfg); err != nil {
			return nil, nil, nil, "", err
		}
	}

	name := stringOpt(options, "name", "")
	if name == "" {
		name = stringOpt(options, "Name", "")
	}
	return cfg, hostCfg, netCfg, name, nil
}

// hijackedReader превращает hijacked-соединение в io.ReadCloser.
type hijackedReader struct {
	io.Reader
	close func()
}

func (r *hijackedReader) Close() error {
	r.close()
	return nil
}

// String для логов.
func (a *Adapter) String() string {
	return fmt.Sprintf("docker(%s)", a.api.DaemonHost())
}
