package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/dockflow/internal/actions"
	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/docker/dockertest"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/resolve"
)

func node(kind domain.ResourceKind, action, id string) *domain.Node {
	return &domain.Node{
		ID:         uuid.New(),
		Name:       "n",
		Kind:       kind,
		Action:     action,
		ResourceID: id,
	}
}

func run(t *testing.T, fake *dockertest.Fake, n *domain.Node, msg domain.Message) (*Pending, *Recorder, error) {
	t.Helper()
	engine := New(Config{Client: fake})
	sink := &Recorder{}

	p, err := engine.Dispatch(context.Background(), n, msg, sink)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, p.Wait(ctx))
	}
	return p, sink, err
}

func TestDispatch_InspectSuccess(t *testing.T) {
	fake := dockertest.New().On("container.inspect", map[string]any{"State": "running"}, nil)

	p, sink, err := run(t, fake, node(domain.ResourceContainer, "inspect", "abc"), domain.Message{"_msgid": "m1"})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"State": "running"}, msgs[0].Payload())
	assert.Equal(t, "m1", msgs[0].ID())

	statuses := sink.Statuses()
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].IsClear())
	assert.Equal(t, domain.StatusUpdate{Fill: "green", Shape: "dot", Text: "abc started"}, statuses[1])
	assert.Empty(t, sink.Logs())

	assert.Equal(t, domain.DispatchStateCompleted, p.State())
	assert.Equal(t, domain.OutcomeSuccess, p.Outcome().Kind)
	assert.Equal(t, 1, p.Emitted())
}

func TestDispatch_ConfigAlreadyRemoved(t *testing.T) {
	remote := docker.NewRemoteError(304, "not modified")
	fake := dockertest.New().On("config.remove", nil, remote)

	_, sink, err := run(t, fake, node(domain.ResourceConfig, "remove", "cfg"), domain.Message{})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, remote, msgs[0].Payload())
	assert.Equal(t, "ok", sink.LastStatus().Level())
	assert.Equal(t, "cfg remove", sink.LastStatus().Text)

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogLevelWarn, logs[0].Level)
	assert.Contains(t, logs[0].Text, "already removed")
}

func TestDispatch_VolumeCreateWithoutID(t *testing.T) {
	fake := dockertest.New().On("volume.create", map[string]any{"Name": "generated"}, nil)

	_, sink, err := run(t, fake, node(domain.ResourceVolume, "create", ""), domain.Message{"payload": map[string]any{}})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"name": ""}, calls[0].Options)
	assert.Equal(t, "created", sink.LastStatus().Text)
}

func TestDispatch_UnknownAction(t *testing.T) {
	fake := dockertest.New()

	p, sink, err := run(t, fake, node(domain.ResourceContainer, "foo", "abc"), domain.Message{})
	require.ErrorIs(t, err, actions.ErrUnknownAction)

	assert.Empty(t, sink.Messages())
	assert.Empty(t, fake.Calls())
	require.Len(t, sink.Statuses(), 1)
	assert.True(t, sink.Statuses()[0].IsClear())

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogLevelError, logs[0].Level)
	assert.Equal(t, "Called with an unknown action: foo", logs[0].Text)
	assert.Equal(t, domain.DispatchStateFailed, p.State())

	select {
	case <-p.Done():
	default:
		t.Fatal("failed dispatch must be finished")
	}
}

func TestDispatch_MissingResourceID(t *testing.T) {
	fake := dockertest.New()

	_, sink, err := run(t, fake, node(domain.ResourceContainer, "inspect", ""), domain.Message{})
	require.ErrorIs(t, err, resolve.ErrMissingRequiredField)
	assert.Empty(t, sink.Messages())
	assert.Empty(t, fake.Calls())
}

func TestDispatch_ExecWithDiagnostic(t *testing.T) {
	fake := dockertest.New().OnStream("exec.start", func() *docker.Stream {
		return dockertest.MuxStream("primary output", "diagnostic output")
	})
	n := node(domain.ResourceContainer, "exec", "abc")
	n.Command = "do-something"

	p, sink, err := run(t, fake, n, domain.Message{})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "primary output", msgs[0].Payload())

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogLevelError, logs[0].Level)
	assert.Equal(t, "exec container: diagnostic output", logs[0].Text)

	assert.Equal(t, "abc started", sink.LastStatus().Text)
	assert.Equal(t, domain.DispatchStateCompleted, p.State())
}

func TestDispatch_StatsFramesThenClose(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		return dockertest.FrameStream(`{"seq":1}`, `{"seq":2}`, `{"seq":3}`)
	})

	p, sink, err := run(t, fake, node(domain.ResourceContainer, "stats", "abc"), domain.Message{"_msgid": "in"})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 3)
	seen := map[string]bool{}
	for i, m := range msgs {
		payload, ok := m.Payload().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(i+1), payload["seq"])
		assert.NotEqual(t, "in", m.ID())
		seen[m.ID()] = true
	}
	assert.Len(t, seen, 3)

	last := sink.LastStatus()
	assert.Equal(t, "disconnected", last.Text)
	assert.Equal(t, domain.StatusFillRed, last.Fill)

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogLevelWarn, logs[0].Level)

	assert.Equal(t, domain.DispatchStateStreamClosed, p.State())
	assert.NoError(t, p.Err())
}

func TestDispatch_StatsBadFrame(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		return dockertest.FrameStream(`{"seq":1}`, `not json`, `{"seq":3}`)
	})

	_, sink, err := run(t, fake, node(domain.ResourceContainer, "stats", "abc"), domain.Message{})
	require.NoError(t, err)

	assert.Len(t, sink.Messages(), 2)
	logs := sink.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, domain.LogLevelError, logs[0].Level)
	assert.Contains(t, logs[0].Text, "parse stats frame")
	assert.Equal(t, domain.LogLevelWarn, logs[1].Level)
}

func TestDispatch_StatsEndedByContext(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		return dockertest.FrameStream(`{"seq":1}`)
	})
	engine := New(Config{Client: fake})
	sink := &Recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := engine.Dispatch(ctx, node(domain.ResourceContainer, "stats", "abc"), domain.Message{}, sink)
	require.NoError(t, err)
	engine.Wait()

	assert.Equal(t, "stream ended", sink.LastStatus().Text)
	assert.Equal(t, domain.StatusFillYellow, sink.LastStatus().Fill)
	assert.Equal(t, domain.DispatchStateStreamClosed, p.State())
}

func TestDispatch_UnknownErrorSuppressesPayload(t *testing.T) {
	fake := dockertest.New().On("container.start", nil, errors.New("connection reset"))

	p, sink, err := run(t, fake, node(domain.ResourceContainer, "start", "abc"), domain.Message{})
	require.NoError(t, err)

	assert.Empty(t, sink.Messages())
	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogLevelError, logs[0].Level)
	assert.Contains(t, logs[0].Text, "connection reset")
	assert.Equal(t, domain.OutcomeUnknownError, p.Outcome().Kind)
}

func TestDispatch_NotFoundEmitsError(t *testing.T) {
	remote := docker.NewRemoteError(404, "No such container: abc")
	fake := dockertest.New().On("container.stop", nil, remote)

	_, sink, err := run(t, fake, node(domain.ResourceContainer, "stop", "abc"), domain.Message{})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, remote, msgs[0].Payload())
	assert.Equal(t, domain.StatusFillRed, sink.LastStatus().Fill)
	assert.Contains(t, sink.Logs()[0].Text, "abc")
}

func TestDispatch_ExportInline(t *testing.T) {
	fake := dockertest.New().On("container.export", &docker.Blob{
		ReadCloser: io.NopCloser(strings.NewReader("tar-bytes")),
		Name:       "abc.tar",
	}, nil)

	_, sink, err := run(t, fake, node(domain.ResourceContainer, "export", "abc"), domain.Message{})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("tar-bytes"), msgs[0].Payload())
}

func TestDispatch_MessageDrivenAction(t *testing.T) {
	fake := dockertest.New()
	n := node(domain.ResourceContainer, "", "")

	_, _, err := run(t, fake, n, domain.Message{
		"action":  "restart",
		"payload": map[string]any{"containerId": "web"},
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "container.restart", calls[0].Op)
	assert.Equal(t, "web", calls[0].ID)
}

func TestDispatch_RunEmitsChunks(t *testing.T) {
	fake := dockertest.New().OnStream("client.run", func() *docker.Stream {
		return dockertest.TextStream("hello")
	})
	n := node(domain.ResourceContainer, "run", "")

	p, sink, err := run(t, fake, n, domain.Message{"payload": map[string]any{"image": "alpine"}})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Payload())
	assert.Equal(t, domain.DispatchStateStreamClosed, p.State())
}

func TestDispatch_RunChunksAreDistinctMessages(t *testing.T) {
	fake := dockertest.New().OnStream("client.run", func() *docker.Stream {
		body := io.MultiReader(strings.NewReader("one"), strings.NewReader("two"), strings.NewReader("three"))
		return &docker.Stream{ReadCloser: io.NopCloser(body)}
	})
	n := node(domain.ResourceContainer, "run", "")

	_, sink, err := run(t, fake, n, domain.Message{"_msgid": "in", "payload": map[string]any{"image": "alpine"}})
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 3)
	seen := map[string]bool{}
	for i, want := range []string{"one", "two", "three"} {
		assert.Equal(t, want, msgs[i].Payload())
		assert.NotEqual(t, "in", msgs[i].ID())
		seen[msgs[i].ID()] = true
	}
	assert.Len(t, seen, 3)
}

func TestDispatch_StatsReadErrorFails(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		body := io.MultiReader(
			strings.NewReader("{\"seq\":1}\n"),
			iotest.ErrReader(errors.New("read tcp: connection reset by peer")),
		)
		return &docker.Stream{ReadCloser: io.NopCloser(body)}
	})

	p, sink, err := run(t, fake, node(domain.ResourceContainer, "stats", "abc"), domain.Message{})
	require.NoError(t, err)

	assert.Len(t, sink.Messages(), 1)

	last := sink.LastStatus()
	assert.Equal(t, "disconnected", last.Text)
	assert.Equal(t, domain.StatusFillRed, last.Fill)
	assert.Equal(t, domain.StatusShapeRing, last.Shape)

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogLevelError, logs[0].Level)
	assert.Contains(t, logs[0].Text, "connection reset by peer")

	assert.Equal(t, domain.DispatchStateFailed, p.State())
	require.Error(t, p.Err())
	assert.Contains(t, p.Err().Error(), "connection reset by peer")
}

func TestDispatch_RunCancelledEnds(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	fake := dockertest.New().OnStream("client.run", func() *docker.Stream {
		return &docker.Stream{ReadCloser: pr}
	})
	engine := New(Config{Client: fake})
	sink := &Recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	n := node(domain.ResourceContainer, "run", "")
	p, err := engine.Dispatch(ctx, n, domain.Message{"payload": map[string]any{"image": "alpine"}}, sink)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, p.Wait(waitCtx), "run should stop once the dispatch context is cancelled")

	assert.Equal(t, domain.DispatchStateStreamClosed, p.State())
	assert.Equal(t, "stream ended", sink.LastStatus().Text)
	assert.Empty(t, sink.Messages())
}

func TestDispatch_ContainerPruneNotFound(t *testing.T) {
	remote := docker.NewRemoteError(404, "page not found")
	fake := dockertest.New().On("container.prune", nil, remote)

	p, sink, err := run(t, fake, node(domain.ResourceContainer, "prune", ""), domain.Message{})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeNotFound, p.Outcome().Kind)
	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, remote, msgs[0].Payload())

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Text, "No such container")
}
