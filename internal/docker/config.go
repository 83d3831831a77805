package docker

import (
	"context"

	"github.com/docker/docker/client"
)

type configHandle struct {
	api *client.Client
	id  string
}

func (h configHandle) ID() string { return h.id }

func (h configHandle) Inspect(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	cfg, _, err := h.api.ConfigInspectWithRaw(ctx, h.id)
	if err != nil {
		return nil, wrap(ctx, err)
	}
	return cfg, nil
}

func (h configHandle) Remove(ctx context.Context) (any, error) {
	ctx = trackStatus(ctx)
	return nil, wrap(ctx, h.api.ConfigRemove(ctx, h.id))
}

// Update накладывает options на текущую спецификацию config
// и обновляет её с актуальной версией.
func (h configHandle) Update(ctx context.Context, options map[string]any) (any, error) {
	ctx = trackStatus(ctx)
	cfg, _, err := h.api.ConfigInspectWithRaw(ctx, h.id)
	if err != nil {
		return nil, wrap(ctx, err)
	}

	spec := cfg.Spec
	if err := decodeInto(options, &spec); err != nil {
		return nil, err
	}

	if err := h.api.ConfigUpdate(ctx, h.id, cfg.Version, spec); err != nil {
		return nil, wrap(ctx, err)
	}
	return nil, nil
}
