package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/dockflow/internal/docker"
)

type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func blob(content string) *docker.Blob {
	return &docker.Blob{
		ReadCloser: io.NopCloser(strings.NewReader(content)),
		Name:       "abc.tar",
		Meta:       map[string]any{"size": len(content)},
	}
}

func TestMaterialize_Inline(t *testing.T) {
	up := &fakeUploader{}
	store := New(up, Config{Bucket: "b", Prefix: "p", InlineLimit: 10})

	v, err := store.Materialize(context.Background(), "d1", blob("small"))
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), v)
	assert.Empty(t, up.inputs)
}

func TestMaterialize_Upload(t *testing.T) {
	up := &fakeUploader{}
	store := New(up, Config{Bucket: "b", Prefix: "p", InlineLimit: 4})

	v, err := store.Materialize(context.Background(), "d1", blob("larger than four"))
	require.NoError(t, err)

	ref, ok := v.(*Reference)
	require.True(t, ok)
	assert.Equal(t, "s3://b/p/d1/abc.tar", ref.Ref)
	assert.Equal(t, int64(16), ref.Size)
	assert.Equal(t, "application/x-tar", ref.ContentType)
	assert.Equal(t, map[string]any{"size": 16}, ref.Meta)

	require.Len(t, up.inputs, 1)
	assert.Equal(t, "b", aws.ToString(up.inputs[0].Bucket))
	assert.Equal(t, "p/d1/abc.tar", aws.ToString(up.inputs[0].Key))
	assert.Equal(t, "larger than four", up.bodies[0])
}

func TestMaterialize_NoBucketStaysInline(t *testing.T) {
	store := New(nil, Config{InlineLimit: 1})

	v, err := store.Materialize(context.Background(), "d1", blob("anything"))
	require.NoError(t, err)
	assert.Equal(t, []byte("anything"), v)
}

func TestMaterialize_UploadError(t *testing.T) {
	store := New(&fakeUploader{err: errors.New("access denied")}, Config{Bucket: "b", InlineLimit: 1})

	_, err := store.Materialize(context.Background(), "d1", blob("anything"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ARTIFACT_BUCKET", "artifacts")
	t.Setenv("ARTIFACT_PREFIX", "")
	t.Setenv("ARTIFACT_INLINE_LIMIT", "2048")

	cfg := ConfigFromEnv()
	assert.Equal(t, "artifacts", cfg.Bucket)
	assert.Equal(t, "dockflow", cfg.Prefix)
	assert.Equal(t, int64(2048), cfg.InlineLimit)
}
