package docker

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const contentTypeTar = "application/x-tar"

// containerHandle — операции над одним контейнером.
type containerHandle struct {
	api *client.Client
	id  string
}

func (h containerHandle) ID() string { return h.id }

func (h containerHandle) Inspect(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	info, err := h.api.ContainerInspect(ctx, h.id)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return info, nil
}

// Top — процессы контейнера. options["ps_args"] передаётся в ps.
func (h containerHandle) Top(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	var args []string
	if ps := stringOpt(options, "ps_args", ""); ps != "" {
		args = strings.Fields(ps)
	}
	top, err := h.api.ContainerTop(ctx, h.id, args)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return top, nil
}

// Logs читает лог целиком (follow отключён) и склеивает stdout и stderr.
func (h containerHandle) Logs(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	var opts container.LogsOptions
	if err := decodeInto(options, &opts); err != nil {
		return nil, err
	}
	if !opts.ShowStdout && !opts.ShowStderr {
		opts.ShowStdout = true
		opts.ShowStderr = true
	}
	opts.Follow = false

	rc, err := h.api.ContainerLogs(ctx, h.id, opts)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrap(ctx, err)
	}

	// Контейнер с TTY отдаёт лог без заголовков stdcopy.
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, bytes.NewReader(raw)); err != nil {
		return string(raw), nil
	}
	return out.String(), nil
}

func (h containerHandle) Changes(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	changes, err := h.api.ContainerDiff(ctx, h.id)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return changes, nil
}

func (h containerHandle) Export(ctx context.Context) (*Blob, error) {
	ctx = trackStatus(ctx)
	rc, err := h.api.ContainerExport(ctx, h.id)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return &Blob{ReadCloser: rc, Name: h.id + ".tar", ContentType: contentTypeTar}, nil
}

func (h containerHandle) Stats(ctx context.Context) (io.ReadCloser, error) {
	ctx = trackStatus(ctx)
	stats, err := h.api.ContainerStats(ctx, h.id, true)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return stats.Body, nil
}

// Resize — размер TTY: options h, w.
func (h containerHandle) Resize(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	height, _ := intOpt(options, "h")
	width, _ := intOpt(options, "w")
	err := h.api.ContainerResize(ctx, h.id, container.ResizeOptions{
		Height: uint(max(height, 0)),
		Width:  uint(max(width, 0)),
	})
	return nil, wrap(ctx, err)
}

func (h containerHandle) Start(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	var opts container.StartOptions
	if err := decodeInto(options, &opts); err != nil {
		return nil, err
	}
	return nil, wrap(ctx, h.api.ContainerStart(ctx, h.id, opts))
}

func (h containerHandle) Stop(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.ContainerStop(ctx, h.id, stopOptions(options)))
}

func (h containerHandle) Restart(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.ContainerRestart(ctx, h.id, stopOptions(options)))
}

// Kill отправляет сигнал, по умолчанию SIGKILL.
func (h containerHandle) Kill(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.ContainerKill(ctx, h.id, stringOpt(options, "signal", "SIGKILL")))
}

// Update меняет ресурсы контейнера (тело container.UpdateConfig).
func (h containerHandle) Update(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	var cfg container.UpdateConfig
	if err := decodeInto(options, &cfg); err != nil {
		return nil, err
	}
	resp, err := h.api.ContainerUpdate(ctx, h.id, cfg)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return resp, nil
}

// Rename — новое имя в options["name"].
func (h containerHandle) Rename(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	name := stringOpt(options, "name", "")
	if name == "" {
		return nil, NewRemoteError(http.StatusBadRequest, "rename: options.name is required")
	}
	return nil, wrap(ctx, h.api.ContainerRename(ctx, h.id, name))
}

func (h containerHandle) Pause(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.ContainerPause(ctx, h.id))
}

func (h containerHandle) Unpause(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.ContainerUnpause(ctx, h.id))
}

// Wait ждёт условия options["condition"] (по умолчанию not-running).
func (h containerHandle) Wait(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	cond := container.WaitCondition(stringOpt(options, "condition", string(container.WaitConditionNotRunning)))

	resultC, errC := h.api.ContainerWait(ctx, h.id, cond)
	select {
	case res := <-resultC:
		return res, nil
	case err := <-errC:
		return nil, wrap(ctx, err)
	case <-ctx.Done():
		return nil, wrap(ctx, ctx.Err())
	}
}

// Remove удаляет контейнер: options force, v, link.
func (h containerHandle) Remove(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	err := h.api.ContainerRemove(ctx, h.id, container.RemoveOptions{
		Force:         boolOpt(options, "force", false),
		RemoveVolumes: boolOpt(options, "v", false),
		RemoveLinks:   boolOpt(options, "link", false),
	})
	return nil, wrap(ctx, err)
}

func (h containerHandle) ArchiveInfo(ctx context.Context, p string) (any, error) {
	ctx = trackStatus(ctx)
	stat, err := h.api.ContainerStatPath(ctx, h.id, p)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return stat, nil
}

// GetArchive — tar-архив пути options["path"].
func (h containerHandle) GetArchive(ctx context.Context, options map[string]any) (*Blob, error) {
	ctx = trackStatus(ctx)
	p := stringOpt(options, "path", "")
	if p == "" {
		return nil, NewRemoteError(http.StatusBadRequest, "get-archive: options.path is required")
	}
	rc, stat, err := h.api.CopyFromContainer(ctx, h.id, p)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return &Blob{
		ReadCloser:  rc,
		Name:        h.id + "-" + strings.Trim(path.Base(p), "/") + ".tar",
		ContentType: contentTypeTar,
		Meta:        stat,
	}, nil
}

// Exec создаёт exec-сессию с подключёнными stdout и stderr.
func (h containerHandle) Exec(ctx context.Context, cmd []string) (ExecSession, error) {
	ctx = trackStatus(ctx)
	resp, err := h.api.ContainerExecCreate(ctx, h.id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return execSession{api: h.api, id: resp.ID}, nil
}

type execSession struct {
	api *client.Client
	id  string
}

func (s execSession) ID() string { return s.id }

// Start запускает exec и возвращает мультиплексированный вывод.
func (s execSession) Start(ctx context.Context) (*Stream, error) {
	ctx = trackStatus(ctx)
	hijacked, err := s.api.ContainerExecAttach(ctx, s.id, container.ExecStartOptions{})
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return &Stream{
		ReadCloser:  &hijackedReader{Reader: hijacked.Reader, close: hijacked.Close},
		Multiplexed: true,
	}, nil
}

func stopOptions(options map[string]any) container.StopOptions {
	opts := container.StopOptions{Signal: stringOpt(options, "signal", "")}
	if t, ok := intOpt(options, "t"); ok {
		opts.Timeout = &t
	}
	return opts
}
