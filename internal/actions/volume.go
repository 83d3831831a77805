package actions

import (
	"context"
	"maps"

	"github.com/shaiso/dockflow/internal/outcome"
)

const labelCreated = "created"

func volumeOperations() []*Operation {
	return []*Operation{
		unary("list", labelStarted, outcome.VolumeListing(), func(ctx context.Context, c *Call) (any, error) {
			return c.Client.ListVolumes(ctx, c.Options())
		}),
		unary("inspect", labelStarted, outcome.ServerOnly(), func(ctx context.Context, c *Call) (any, error) {
			return c.Volume().Inspect(ctx)
		}),
		unary("remove", labelStopped, outcome.VolumeRemove(), func(ctx context.Context, c *Call) (any, error) {
			return c.Volume().Remove(ctx, c.Options())
		}),
		unary("prune", labelStopped, outcome.ServerOnly(), func(ctx context.Context, c *Call) (any, error) {
			return c.Client.PruneVolumes(ctx, c.Options())
		}),
		unary("create", labelCreated, outcome.ServerOnly(), createVolume),
	}
}

// createVolume подставляет идентификатор запроса в options.name.
// Пустой идентификатор тоже подставляется: имя выберет Docker.
func createVolume(ctx context.Context, c *Call) (any, error) {
	opts := maps.Clone(c.Options())
	if opts == nil {
		opts = map[string]any{}
	}
	opts["name"] = c.Request.ResourceID
	return c.Client.CreateVolume(ctx, opts)
}
