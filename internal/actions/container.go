package actions

import (
	"context"

	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/outcome"
)

// Глаголы индикатора контейнера.
const (
	labelStarted   = "started"
	labelKilled    = "killed"
	labelRestarted = "restarted"
	labelStopped   = "stopped"
	labelPulled    = "pulled"
)

func containerOperations() []*Operation {
	handle := outcome.ContainerHandle()

	return []*Operation{
		unary("list", labelStarted, outcome.ContainerListing(), func(ctx context.Context, c *Call) (any, error) {
			return c.Client.ListContainers(ctx, c.Options())
		}),
		unary("create", labelStarted, outcome.ContainerListing(), func(ctx context.Context, c *Call) (any, error) {
			return c.Client.CreateContainer(ctx, c.Options())
		}),
		unary("prune", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Client.PruneContainers(ctx, c.Options())
		}),

		unary("inspect", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Inspect(ctx)
		}),
		unary("top", labelKilled, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Top(ctx, c.Options())
		}),
		unary("logs", labelRestarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Logs(ctx, c.Options())
		}),
		unary("changes", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Changes(ctx)
		}),
		unary("export", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return blobOrNil(c.Container().Export(ctx))
		}),
		unary("resize", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Resize(ctx, c.Options())
		}),
		unary("start", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Start(ctx, c.Options())
		}),
		unary("stop", labelStopped, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Stop(ctx, c.Options())
		}),
		unary("restart", labelRestarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Restart(ctx, c.Options())
		}),
		unary("kill", labelKilled, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Kill(ctx, c.Options())
		}),
		unary("update", labelStarted, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Update(ctx, c.Options())
		}),
		unary("rename", labelStarted, outcome.ContainerRename(), func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Rename(ctx, c.Options())
		}),
		unary("pause", labelStopped, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Pause(ctx)
		}),
		unary("unpause", labelStopped, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Unpause(ctx)
		}),
		unary("wait", labelKilled, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Wait(ctx, c.Options())
		}),
		unary("remove", labelKilled, handle, func(ctx context.Context, c *Call) (any, error) {
			return c.Container().Remove(ctx, c.Options())
		}),
		unary("archive-info", labelKilled, outcome.ContainerArchive(), func(ctx context.Context, c *Call) (any, error) {
			return c.Container().ArchiveInfo(ctx, archivePath(c))
		}),
		unary("get-archive", labelKilled, outcome.ContainerArchive(), func(ctx context.Context, c *Call) (any, error) {
			return blobOrNil(c.Container().GetArchive(ctx, archiveOptions(c)))
		}),

		stream("stats", labelStarted, handle, streamStats),
		stream("exec", labelStarted, handle, execContainer),
		stream("run", labelStarted, outcome.ContainerRun(), runContainer),
		stream("pull", labelPulled, outcome.ImagePull(), pullImage),
	}
}

// blobOrNil не даёт типизированному nil попасть в any.
func blobOrNil(b *docker.Blob, err error) (any, error) {
	if err != nil || b == nil {
		return nil, err
	}
	return b, nil
}

// archivePath — путь внутри контейнера: command, затем options.path.
func archivePath(c *Call) string {
	if c.Request.Command != "" {
		return c.Request.Command
	}
	p, _ := c.Options()["path"].(string)
	return p
}

func archiveOptions(c *Call) map[string]any {
	opts := c.Options()
	if _, ok := opts["path"]; ok || c.Request.Command == "" {
		return opts
	}
	out := make(map[string]any, len(opts)+1)
	for k, v := range opts {
		out[k] = v
	}
	out["path"] = c.Request.Command
	return out
}
