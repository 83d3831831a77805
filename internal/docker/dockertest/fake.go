// Package dockertest — управляемая подмена docker.Client для тестов.
package dockertest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/pkg/stdcopy"

	"github.com/shaiso/dockflow/internal/docker"
)

// Result — ответ на вызов.
type Result struct {
	Value any
	Err   error
}

// Call — записанный вызов.
type Call struct {
	Op      string
	ID      string
	Options map[string]any
	Cmd     []string
	Spec    *docker.RunSpec
}

// Fake реализует docker.Client. Ответы задаются по имени операции:
// "container.inspect", "volume.create", "client.pull", "exec.start" и т.д.
// Операция без ответа возвращает (nil, nil).
type Fake struct {
	mu      sync.Mutex
	results map[string]Result
	streams map[string]func() *docker.Stream
	calls   []Call
}

// New создаёт пустой Fake.
func New() *Fake {
	return &Fake{
		results: make(map[string]Result),
		streams: make(map[string]func() *docker.Stream),
	}
}

// On задаёт ответ операции.
func (f *Fake) On(op string, value any, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[op] = Result{Value: value, Err: err}
	return f
}

// OnStream задаёт поток для "container.stats", "client.run" или "exec.start".
func (f *Fake) OnStream(op string, open func() *docker.Stream) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[op] = open
	return f
}

// Calls возвращает копию записанных вызовов.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Ops возвращает имена операций в порядке вызова.
func (f *Fake) Ops() []string {
	calls := f.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func (f *Fake) record(c Call) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.results[c.Op]
}

func (f *Fake) open(op string) (*docker.Stream, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.streams[op]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func (f *Fake) call(op, id string, options map[string]any) (any, error) {
	r := f.record(Call{Op: op, ID: id, Options: options})
	return r.Value, r.Err
}

func (f *Fake) blob(op, id string, options map[string]any) (*docker.Blob, error) {
	r := f.record(Call{Op: op, ID: id, Options: options})
	if r.Err != nil {
		return nil, r.Err
	}
	b, _ := r.Value.(*docker.Blob)
	return b, nil
}

func (f *Fake) ListContainers(_ context.Context, options map[string]any) (any, error) {
	return f.call("container.list", "", options)
}

func (f *Fake) CreateContainer(_ context.Context, options map[string]any) (any, error) {
	return f.call("container.create", "", options)
}

func (f *Fake) PruneContainers(_ context.Context, options map[string]any) (any, error) {
	return f.call("container.prune", "", options)
}

func (f *Fake) PullImage(_ context.Context, ref string) error {
	_, err := f.call("client.pull", ref, nil)
	return err
}

func (f *Fake) RunContainer(_ context.Context, spec docker.RunSpec) (*docker.Stream, error) {
	r := f.record(Call{Op: "client.run", ID: spec.Image, Cmd: spec.Cmd, Spec: &spec})
	if r.Err != nil {
		return nil, r.Err
	}
	if s, ok := f.open("client.run"); ok {
		return s, nil
	}
	return TextStream(""), nil
}

func (f *Fake) ListVolumes(_ context.Context, options map[string]any) (any, error) {
	return f.call("volume.list", "", options)
}

func (f *Fake) CreateVolume(_ context.Context, options map[string]any) (any, error) {
	return f.call("volume.create", "", options)
}

func (f *Fake) PruneVolumes(_ context.Context, options map[string]any) (any, error) {
	return f.call("volume.prune", "", options)
}

func (f *Fake) Demux(stdout, stderr io.Writer, src io.Reader) error {
	_, err := stdcopy.StdCopy(stdout, stderr, src)
	return err
}

func (f *Fake) Container(id string) docker.ContainerHandle { return &container{f: f, id: id} }
func (f *Fake) Volume(id string) docker.VolumeHandle { return &volume{f: f, id: id} }
func (f *Fake) Config(id string) docker.ConfigHandle { return &config{f: f, id: id} }

// TextStream — поток без мультиплексирования (TTY).
func TextStream(text string) *docker.Stream {
	return &docker.Stream{ReadCloser: io.NopCloser(strings.NewReader(text))}
}

// MuxStream — поток stdcopy с указанными stdout и stderr.
func MuxStream(stdout, stderr string) *docker.Stream {
	var buf bytes.Buffer
	if stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	}
	if stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
	}
	return &docker.Stream{ReadCloser: io.NopCloser(&buf), Multiplexed: true}
}

// FrameStream — поток кадров stats, по одному на строку.
func FrameStream(frames ...string) *docker.Stream {
	return TextStream(strings.Join(frames, "\n") + "\n")
}

type container struct {
	f  *Fake
	id string
}

func (c *container) ID() string { return c.id }

func (c *container) Inspect(context.Context) (any, error) {
	return c.f.call("container.inspect", c.id, nil)
}

func (c *container) Top(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.top", c.id, o)
}

func (c *container) Logs(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.logs", c.id, o)
}

func (c *container) Changes(context.Context) (any, error) {
	return c.f.call("container.changes", c.id, nil)
}

func (c *container) Export(context.Context) (*docker.Blob, error) {
	return c.f.blob("container.export", c.id, nil)
}

func (c *container) Stats(context.Context) (io.ReadCloser, error) {
	r := c.f.record(Call{Op: "container.stats", ID: c.id})
	if r.Err != nil {
		return nil, r.Err
	}
	if s, ok := c.f.open("container.stats"); ok {
		return s, nil
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (c *container) Resize(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.resize", c.id, o)
}

func (c *container) Start(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.start", c.id, o)
}

func (c *container) Stop(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.stop", c.id, o)
}

func (c *container) Restart(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.restart", c.id, o)
}

func (c *container) Kill(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.kill", c.id, o)
}

func (c *container) Update(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.update", c.id, o)
}

func (c *container) Rename(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.rename", c.id, o)
}

func (c *container) Pause(context.Context) (any, error) {
	return c.f.call("container.pause", c.id, nil)
}

func (c *container) Unpause(context.Context) (any, error) {
	return c.f.call("container.unpause", c.id, nil)
}

func (c *container) Wait(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.wait", c.id, o)
}

func (c *container) Remove(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("container.remove", c.id, o)
}

func (c *container) ArchiveInfo(_ context.Context, path string) (any, error) {
	return c.f.call("container.archive-info", c.id, map[string]any{"path": path})
}

func (c *container) GetArchive(_ context.Context, o map[string]any) (*docker.Blob, error) {
	return c.f.blob("container.get-archive", c.id, o)
}

func (c *container) Exec(_ context.Context, cmd []string) (docker.ExecSession, error) {
	r := c.f.record(Call{Op: "container.exec", ID: c.id, Cmd: cmd})
	if r.Err != nil {
		return nil, r.Err
	}
	return &execSession{f: c.f, id: "exec-" + c.id}, nil
}

type execSession struct {
	f  *Fake
	id string
}

func (s *execSession) ID() string { return s.id }

func (s *execSession) Start(context.Context) (*docker.Stream, error) {
	r := s.f.record(Call{Op: "exec.start", ID: s.id})
	if r.Err != nil {
		return nil, r.Err
	}
	if st, ok := s.f.open("exec.start"); ok {
		return st, nil
	}
	return TextStream(""), nil
}

type volume struct {
	f  *Fake
	id string
}

func (v *volume) ID() string { return v.id }

func (v *volume) Inspect(context.Context) (any, error) {
	return v.f.call("volume.inspect", v.id, nil)
}

func (v *volume) Remove(_ context.Context, o map[string]any) (any, error) {
	return v.f.call("volume.remove", v.id, o)
}

type config struct {
	f  *Fake
	id string
}

func (c *config) ID() string { return c.id }

func (c *config) Inspect(context.Context) (any, error) {
	return c.f.call("config.inspect", c.id, nil)
}

func (c *config) Remove(context.Context) (any, error) {
	return c.f.call("config.remove", c.id, nil)
}

func (c *config) Update(_ context.Context, o map[string]any) (any, error) {
	return c.f.call("config.update", c.id, o)
}

var _ docker.Client = (*Fake)(nil)
