package docker

import (
	"context"

	"github.com/docker/docker/client"
)

type volumeHandle struct {
	api *client.Client
	id  string
}

func (h volumeHandle) ID() string { return h.id }

func (h volumeHandle) Inspect(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	vol, err := h.api.VolumeInspect(ctx, h.id)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return vol, nil
}

// Remove удаляет volume; options["force"] удаляет даже используемый.
func (h volumeHandle) Remove(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.VolumeRemove(ctx, h.id, boolOpt(options, "force", false)))
}
