package actions

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/docker/dockertest"
	"github.com/shaiso/dockflow/internal/domain"
)

// recorder — Emitter, который запоминает события по порядку.
type recorder struct {
	events      []string
	frames      []map[string]any
	results     []any
	errs        []error
	diagnostics []string
	parseErrors []error
}

func (r *recorder) Connected() { r.events = append(r.events, "connected") }

func (r *recorder) Frame(event map[string]any) {
	r.events = append(r.events, "frame")
	r.frames = append(r.frames, event)
}

func (r *recorder) Result(value any, err error) {
	r.events = append(r.events, "result")
	r.results = append(r.results, value)
	r.errs = append(r.errs, err)
}

func (r *recorder) Diagnostic(text string) {
	r.events = append(r.events, "diagnostic")
	r.diagnostics = append(r.diagnostics, text)
}

func (r *recorder) ParseError(err error) {
	r.events = append(r.events, "parse_error")
	r.parseErrors = append(r.parseErrors, err)
}

func newCall(fake *dockertest.Fake, kind domain.ResourceKind, action, id string) *Call {
	return &Call{
		Client: fake,
		Request: &domain.ActionRequest{
			Kind:       kind,
			Action:     action,
			ResourceID: id,
			Options:    map[string]any{},
			Extra:      map[string]any{},
		},
	}
}

func TestRouter_Tables(t *testing.T) {
	r := DefaultRouter()

	assert.Equal(t, []string{
		"archive-info", "changes", "create", "exec", "export", "get-archive", "inspect",
		"kill", "list", "logs", "pause", "prune", "pull", "remove", "rename", "resize",
		"restart", "run", "start", "stats", "stop", "top", "unpause", "update", "wait",
	}, r.Actions(domain.ResourceContainer))
	assert.Equal(t, []string{"create", "inspect", "list", "prune", "remove"}, r.Actions(domain.ResourceVolume))
	assert.Equal(t, []string{"inspect", "remove", "update"}, r.Actions(domain.ResourceConfig))
}

func TestRouter_UnknownAction(t *testing.T) {
	r := DefaultRouter()

	for _, tc := range []struct {
		kind   domain.ResourceKind
		action string
	}{
		{domain.ResourceContainer, "foo"},
		{domain.ResourceContainer, "Inspect"},
		{domain.ResourceConfig, "list"},
		{domain.ResourceKind("network"), "inspect"},
	} {
		op, err := r.Route(tc.kind, tc.action)
		assert.Nil(t, op)
		require.ErrorIs(t, err, ErrUnknownAction)
		assert.Equal(t, "Called with an unknown action: "+tc.action, err.Error())
		assert.False(t, r.Has(tc.kind, tc.action))
	}
}

func TestRouter_Labels(t *testing.T) {
	r := DefaultRouter()

	cases := map[domain.ResourceKind]map[string]string{
		domain.ResourceContainer: {
			"inspect": "started", "top": "killed", "logs": "restarted",
			"stop": "stopped", "pause": "stopped", "remove": "killed",
		},
		domain.ResourceVolume: {"create": "created", "remove": "stopped", "inspect": "started"},
		domain.ResourceConfig: {"inspect": "started", "remove": "remove", "update": "remove"},
	}
	for kind, labels := range cases {
		for action, label := range labels {
			op, err := r.Route(kind, action)
			require.NoError(t, err)
			assert.Equal(t, label, op.Label, "%s %s", kind, action)
		}
	}
}

func TestRouter_Describe(t *testing.T) {
	infos := DefaultRouter().Describe(domain.ResourceVolume)
	require.Len(t, infos, 5)
	assert.Equal(t, "create", infos[0].Action)
	assert.True(t, infos[0].TargetOptional)
	assert.Equal(t, "inspect", infos[1].Action)
	assert.False(t, infos[1].TargetOptional)
	assert.Equal(t, "unary", infos[1].Mode)
}

func TestUnary_Inspect(t *testing.T) {
	fake := dockertest.New().On("container.inspect", map[string]any{"State": "running"}, nil)
	op, err := DefaultRouter().Route(domain.ResourceContainer, "inspect")
	require.NoError(t, err)

	value, err := op.Unary(context.Background(), newCall(fake, domain.ResourceContainer, "inspect", "abc"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"State": "running"}, value)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "abc", calls[0].ID)
}

func TestUnary_VolumeCreateSetsName(t *testing.T) {
	fake := dockertest.New()
	op, err := DefaultRouter().Route(domain.ResourceVolume, "create")
	require.NoError(t, err)

	call := newCall(fake, domain.ResourceVolume, "create", "")
	call.Request.Options = map[string]any{"Driver": "local"}

	_, err = op.Unary(context.Background(), call)
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"Driver": "local", "name": ""}, calls[0].Options)
	// Исходные options не меняются.
	assert.Equal(t, map[string]any{"Driver": "local"}, call.Request.Options)
}

func TestUnary_ArchivePathFromCommand(t *testing.T) {
	fake := dockertest.New()
	op, err := DefaultRouter().Route(domain.ResourceContainer, "archive-info")
	require.NoError(t, err)

	call := newCall(fake, domain.ResourceContainer, "archive-info", "abc")
	call.Request.Command = "/etc/hosts"
	_, err = op.Unary(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", fake.Calls()[0].Options["path"])
}

func TestUnary_ExportNilBlob(t *testing.T) {
	fake := dockertest.New()
	op, err := DefaultRouter().Route(domain.ResourceContainer, "export")
	require.NoError(t, err)

	value, err := op.Unary(context.Background(), newCall(fake, domain.ResourceContainer, "export", "abc"))
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStats_FramesThenClose(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		return dockertest.FrameStream(`{"n":1}`, `{"n":2}`, `{"n":3}`)
	})
	rec := &recorder{}

	err := streamStats(context.Background(), newCall(fake, domain.ResourceContainer, "stats", "abc"), rec)

	require.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, []string{"connected", "frame", "frame", "frame"}, rec.events)
	for i, frame := range rec.frames {
		assert.Equal(t, float64(i+1), frame["n"])
	}
}

func TestStats_BadFrameDropped(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		return dockertest.FrameStream(`{"n":1}`, `{broken`, `{"n":3}`)
	})
	rec := &recorder{}

	err := streamStats(context.Background(), newCall(fake, domain.ResourceContainer, "stats", "abc"), rec)

	require.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, []string{"connected", "frame", "parse_error", "frame"}, rec.events)
	require.Len(t, rec.frames, 2)
	assert.Equal(t, float64(3), rec.frames[1]["n"])
}

func TestStats_CancelledContext(t *testing.T) {
	fake := dockertest.New().OnStream("container.stats", func() *docker.Stream {
		return dockertest.FrameStream(`{"n":1}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := streamStats(ctx, newCall(fake, domain.ResourceContainer, "stats", "abc"), &recorder{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStats_OpenError(t *testing.T) {
	remote := docker.NewRemoteError(404, "no such container")
	fake := dockertest.New().On("container.stats", nil, remote)
	rec := &recorder{}

	err := streamStats(context.Background(), newCall(fake, domain.ResourceContainer, "stats", "abc"), rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"result"}, rec.events)
	assert.Equal(t, remote, rec.errs[0])
}

func TestExec_StdoutAndDiagnostic(t *testing.T) {
	fake := dockertest.New().OnStream("exec.start", func() *docker.Stream {
		return dockertest.MuxStream("hello\n", "warning: low disk\n")
	})
	rec := &recorder{}
	call := newCall(fake, domain.ResourceContainer, "exec", "abc")
	call.Request.Command = "echo hello"

	err := execContainer(context.Background(), call, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"result", "diagnostic"}, rec.events)
	assert.Equal(t, "hello\n", rec.results[0])
	assert.NoError(t, rec.errs[0])
	assert.Equal(t, "exec container: warning: low disk", rec.diagnostics[0])

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"sh", "-c", "echo hello"}, calls[0].Cmd)
}

func TestExec_NoDiagnosticWhenStderrEmpty(t *testing.T) {
	fake := dockertest.New().OnStream("exec.start", func() *docker.Stream {
		return dockertest.MuxStream("ok", "")
	})
	rec := &recorder{}

	require.NoError(t, execContainer(context.Background(), newCall(fake, domain.ResourceContainer, "exec", "abc"), rec))
	assert.Equal(t, []string{"result"}, rec.events)
}

func TestExec_CreateError(t *testing.T) {
	remote := docker.NewRemoteError(409, "container is paused")
	fake := dockertest.New().On("container.exec", nil, remote)
	rec := &recorder{}

	require.NoError(t, execContainer(context.Background(), newCall(fake, domain.ResourceContainer, "exec", "abc"), rec))
	assert.Equal(t, remote, rec.errs[0])
	assert.Equal(t, []string{"container.exec"}, fake.Ops())
}

func TestRun_PullThenRun(t *testing.T) {
	fake := dockertest.New().OnStream("client.run", func() *docker.Stream {
		return dockertest.MuxStream("line 1\n", "")
	})
	rec := &recorder{}
	call := newCall(fake, domain.ResourceContainer, "run", "")
	call.Request.Command = "echo line 1"
	call.Request.Extra = map[string]any{
		domain.ExtraImage:     "alpine:3",
		domain.ExtraPullImage: true,
	}

	require.NoError(t, runContainer(context.Background(), call, rec))

	assert.Equal(t, []string{"client.pull", "client.run"}, fake.Ops())
	calls := fake.Calls()
	assert.Equal(t, "alpine:3", calls[0].ID)
	require.NotNil(t, calls[1].Spec)
	assert.Equal(t, []string{"sh", "-c", "echo line 1"}, calls[1].Spec.Cmd)
	assert.Equal(t, map[string]any{}, calls[1].Spec.Create)

	assert.Equal(t, []string{"connected", "result"}, rec.events)
	assert.Equal(t, "line 1\n", rec.results[0])
}

func TestRun_WithoutPull(t *testing.T) {
	fake := dockertest.New()
	call := newCall(fake, domain.ResourceContainer, "run", "")
	call.Request.Extra = map[string]any{domain.ExtraImage: "alpine:3"}

	require.NoError(t, runContainer(context.Background(), call, &recorder{}))
	assert.Equal(t, []string{"client.run"}, fake.Ops())
	assert.Nil(t, fake.Calls()[0].Cmd)
}

func TestRun_PullFailureIsReported(t *testing.T) {
	remote := docker.NewRemoteError(404, "manifest unknown")
	fake := dockertest.New().On("client.pull", nil, remote)
	rec := &recorder{}
	call := newCall(fake, domain.ResourceContainer, "run", "")
	call.Request.Extra = map[string]any{domain.ExtraImage: "nope", domain.ExtraPullImage: true}

	require.NoError(t, runContainer(context.Background(), call, rec))
	assert.Equal(t, []string{"client.pull"}, fake.Ops())
	assert.Equal(t, []string{"result"}, rec.events)
	assert.True(t, errors.Is(rec.errs[0], remote))
}

// silentStream — поток, в который никто не пишет, пока его не закроют.
func silentStream(t *testing.T, multiplexed bool) func() *docker.Stream {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	return func() *docker.Stream {
		return &docker.Stream{ReadCloser: pr, Multiplexed: multiplexed}
	}
}

func awaitReturn(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after context cancellation")
		return nil
	}
}

func TestRun_CancelClosesSilentStream(t *testing.T) {
	fake := dockertest.New().OnStream("client.run", silentStream(t, false))
	rec := &recorder{}
	call := newCall(fake, domain.ResourceContainer, "run", "")
	call.Request.Extra = map[string]any{domain.ExtraImage: "alpine:3"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runContainer(ctx, call, rec) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := awaitReturn(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"connected"}, rec.events)
}

func TestExec_CancelClosesSilentStream(t *testing.T) {
	fake := dockertest.New().OnStream("exec.start", silentStream(t, true))
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- execContainer(ctx, newCall(fake, domain.ResourceContainer, "exec", "abc"), rec)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := awaitReturn(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.events, "cancelled exec must not emit a partial result")
}

func TestPull_EmitsEmptyObject(t *testing.T) {
	fake := dockertest.New()
	rec := &recorder{}
	call := newCall(fake, domain.ResourceContainer, "pull", "")
	call.Request.Extra = map[string]any{domain.ExtraImage: "alpine:3"}

	require.NoError(t, pullImage(context.Background(), call, rec))
	assert.Equal(t, map[string]any{}, rec.results[0])
}

func TestShellCommand(t *testing.T) {
	assert.Nil(t, shellCommand(""))
	assert.Nil(t, shellCommand("   "))
	assert.Equal(t, []string{"sh", "-c", "ls -la"}, shellCommand("ls -la"))
}
