package actions

import (
	"context"

	"github.com/shaiso/dockflow/internal/outcome"
)

const labelRemove = "remove"

func configOperations() []*Operation {
	return []*Operation{
		unary("inspect", labelStarted, outcome.ConfigInspect(), func(ctx context.Context, c *Call) (any, error) {
			return c.Config().Inspect(ctx)
		}),
		unary("remove", labelRemove, outcome.ConfigRemove(), func(ctx context.Context, c *Call) (any, error) {
			return c.Config().Remove(ctx)
		}),
		unary("update", labelRemove, outcome.ConfigRemove(), func(ctx context.Context, c *Call) (any, error) {
			return c.Config().Update(ctx, c.Options())
		}),
	}
}
