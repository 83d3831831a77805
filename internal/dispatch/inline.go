package dispatch

import (
	"context"
	"io"

	"github.com/shaiso/dockflow/internal/docker"
)

// inlineOnly читает Blob целиком, когда хранилище не настроено.
type inlineOnly struct{}

func (inlineOnly) Materialize(_ context.Context, _ string, blob *docker.Blob) (any, error) {
	defer blob.Close()
	return io.ReadAll(blob)
}
