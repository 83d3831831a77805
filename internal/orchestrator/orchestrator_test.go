package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/repo"
)

// --- fakes ---

type fakeNodes map[uuid.UUID]*domain.Node

func (f fakeNodes) GetByID(_ context.Context, id uuid.UUID) (*domain.Node, error) {
	n, ok := f[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return n, nil
}

type fakeDispatches struct {
	mu      sync.Mutex
	created []*domain.Dispatch
	keys    map[string]bool
	err     error
}

func (f *fakeDispatches) Create(_ context.Context, d *domain.Dispatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	key := d.NodeID.String() + "/" + d.IdempotencyKey
	if f.keys[key] {
		return repo.ErrAlreadyExists
	}
	f.keys[key] = true
	f.created = append(f.created, d)
	return nil
}

type published struct {
	dispatchID uuid.UUID
	nodeID     uuid.UUID
}

type fakePublisher struct {
	mu    sync.Mutex
	items []published
	err   error
}

func (p *fakePublisher) PublishNodeInput(_ context.Context, dispatchID, nodeID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, published{dispatchID, nodeID})
	return p.err
}

func setup(wires ...uuid.UUID) (*Orchestrator, *domain.Node, *fakeDispatches, *fakePublisher) {
	source := &domain.Node{ID: uuid.New(), Name: "source", Kind: domain.ResourceContainer, Wires: wires}
	dispatches := &fakeDispatches{}
	pub := &fakePublisher{}

	o := New(Config{
		Nodes:      fakeNodes{source.ID: source},
		Dispatches: dispatches,
		Publisher:  pub,
	})
	return o, source, dispatches, pub
}

func output(source *domain.Node, msg domain.Message) mq.NodeOutputPayload {
	return mq.NodeOutputPayload{NodeID: source.ID, DispatchID: uuid.New(), Seq: 1, Message: msg}
}

// --- Route Tests ---

func TestRoute_FanOut(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o, source, dispatches, pub := setup(a, b)

	out := output(source, domain.Message{"_msgid": "m1", "payload": "x"})
	if err := o.Route(context.Background(), out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dispatches.created) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(dispatches.created))
	}
	for i, target := range []uuid.UUID{a, b} {
		d := dispatches.created[i]
		if d.NodeID != target {
			t.Errorf("dispatch %d: expected node %s, got %s", i, target, d.NodeID)
		}
		if d.State != domain.DispatchStateQueued {
			t.Errorf("dispatch %d: expected QUEUED, got %s", i, d.State)
		}
		if d.IdempotencyKey != out.DispatchID.String()+":1:"+target.String() {
			t.Errorf("dispatch %d: unexpected idempotency key %q", i, d.IdempotencyKey)
		}
		if d.SourceDispatchID == nil || *d.SourceDispatchID != out.DispatchID {
			t.Errorf("dispatch %d: source dispatch should be %s", i, out.DispatchID)
		}
		if d.Input["payload"] != "x" {
			t.Errorf("dispatch %d: payload should be copied, got %v", i, d.Input["payload"])
		}
	}

	// Получатели не делят одну map.
	dispatches.created[0].Input["payload"] = "changed"
	if dispatches.created[1].Input["payload"] != "x" {
		t.Error("inputs of different targets should be independent")
	}

	if len(pub.items) != 2 {
		t.Fatalf("expected 2 node.input events, got %d", len(pub.items))
	}
	if pub.items[0].dispatchID != dispatches.created[0].ID || pub.items[0].nodeID != a {
		t.Error("node.input should reference the created dispatch")
	}

	stats, ok := o.Stats(source.ID)
	if !ok {
		t.Fatal("stats should exist for source node")
	}
	if stats.Routed != 2 {
		t.Errorf("expected routed=2, got %d", stats.Routed)
	}
	if stats.LastRoutedAt == nil {
		t.Error("LastRoutedAt should be set")
	}
}

func TestRoute_Duplicate(t *testing.T) {
	target := uuid.New()
	o, source, dispatches, pub := setup(target)

	out := output(source, domain.Message{"_msgid": "m1"})
	for i := 0; i < 2; i++ {
		if err := o.Route(context.Background(), out); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
	}

	if len(dispatches.created) != 1 {
		t.Errorf("expected 1 dispatch, got %d", len(dispatches.created))
	}
	if len(pub.items) != 1 {
		t.Errorf("expected 1 node.input event, got %d", len(pub.items))
	}

	stats, _ := o.Stats(source.ID)
	if stats.Duplicates != 1 {
		t.Errorf("expected duplicates=1, got %d", stats.Duplicates)
	}
}

func TestRoute_NoWires(t *testing.T) {
	o, source, dispatches, _ := setup()

	if err := o.Route(context.Background(), output(source, domain.Message{"_msgid": "m1"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dispatches.created) != 0 {
		t.Errorf("expected no dispatches, got %d", len(dispatches.created))
	}

	stats, _ := o.Stats(source.ID)
	if stats.Dropped != 1 {
		t.Errorf("expected dropped=1, got %d", stats.Dropped)
	}
}

func TestRoute_UnnumberedOutputUsesMsgID(t *testing.T) {
	target := uuid.New()
	o, source, dispatches, _ := setup(target)

	out := output(source, domain.Message{"_msgid": "m1", "payload": 1})
	out.Seq = 0
	if err := o.Route(context.Background(), out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := out.DispatchID.String() + ":m1:" + target.String()
	if dispatches.created[0].IdempotencyKey != want {
		t.Errorf("expected key %q, got %q", want, dispatches.created[0].IdempotencyKey)
	}
}

func TestRoute_StreamChunksShareMsgID(t *testing.T) {
	target := uuid.New()
	o, source, dispatches, _ := setup(target)

	// Чанки одного run несут _msgid входного сообщения, но разные номера.
	dispatchID := uuid.New()
	for seq := int64(1); seq <= 3; seq++ {
		out := mq.NodeOutputPayload{
			NodeID:     source.ID,
			DispatchID: dispatchID,
			Seq:        seq,
			Message:    domain.Message{"_msgid": "m1", "payload": seq},
		}
		if err := o.Route(context.Background(), out); err != nil {
			t.Fatalf("chunk %d: unexpected error: %v", seq, err)
		}
	}
	if len(dispatches.created) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(dispatches.created))
	}

	// Повторная доставка второго чанка.
	redelivered := mq.NodeOutputPayload{
		NodeID:     source.ID,
		DispatchID: dispatchID,
		Seq:        2,
		Message:    domain.Message{"_msgid": "m1", "payload": int64(2)},
	}
	if err := o.Route(context.Background(), redelivered); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dispatches.created) != 3 {
		t.Errorf("redelivered chunk should be a duplicate, got %d dispatches", len(dispatches.created))
	}

	stats, _ := o.Stats(source.ID)
	if stats.Routed != 3 || stats.Duplicates != 1 {
		t.Errorf("expected routed=3 duplicates=1, got %+v", stats)
	}
}

func TestRoute_FanInSameMsgID(t *testing.T) {
	c := uuid.New()
	a := &domain.Node{ID: uuid.New(), Name: "a", Kind: domain.ResourceContainer, Wires: []uuid.UUID{c}}
	b := &domain.Node{ID: uuid.New(), Name: "b", Kind: domain.ResourceContainer, Wires: []uuid.UUID{c}}
	dispatches := &fakeDispatches{}
	o := New(Config{
		Nodes:      fakeNodes{a.ID: a, b.ID: b},
		Dispatches: dispatches,
	})

	// A -> B -> C и A -> C: оба вывода несут исходный _msgid.
	msg := domain.Message{"_msgid": "m1", "payload": "x"}
	for _, source := range []*domain.Node{a, b} {
		if err := o.Route(context.Background(), output(source, msg)); err != nil {
			t.Fatalf("route from %s: %v", source.Name, err)
		}
	}

	if len(dispatches.created) != 2 {
		t.Fatalf("expected 2 dispatches for C, got %d", len(dispatches.created))
	}
	for _, d := range dispatches.created {
		if d.NodeID != c {
			t.Errorf("expected dispatch for %s, got %s", c, d.NodeID)
		}
	}
}

func TestRoute_SourceMissing(t *testing.T) {
	o, _, _, _ := setup(uuid.New())

	err := o.Route(context.Background(), mq.NodeOutputPayload{NodeID: uuid.New()})
	if !errors.Is(err, ErrSourceNodeNotFound) {
		t.Errorf("expected ErrSourceNodeNotFound, got %v", err)
	}
}

func TestRoute_CreateError(t *testing.T) {
	o, source, dispatches, pub := setup(uuid.New())
	dispatches.err = errors.New("db down")

	err := o.Route(context.Background(), output(source, domain.Message{"_msgid": "m1"}))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(pub.items) != 0 {
		t.Error("nothing should be published when dispatch was not created")
	}
}

func TestRoute_PublishErrorIgnored(t *testing.T) {
	o, source, dispatches, pub := setup(uuid.New())
	pub.err = errors.New("channel closed")

	if err := o.Route(context.Background(), output(source, domain.Message{"_msgid": "m1"})); err != nil {
		t.Fatalf("publish error should not fail routing: %v", err)
	}
	if len(dispatches.created) != 1 {
		t.Error("dispatch should still be created")
	}
}

func TestRoute_Stopped(t *testing.T) {
	o, source, _, _ := setup(uuid.New())
	o.Stop()

	err := o.Route(context.Background(), output(source, domain.Message{}))
	if !errors.Is(err, ErrOrchestratorStopped) {
		t.Errorf("expected ErrOrchestratorStopped, got %v", err)
	}
}

// --- handleNodeOutput Tests ---

func TestHandleNodeOutput_DeletedSourceAcked(t *testing.T) {
	o, _, _, _ := setup()

	d := &mq.Delivery{Envelope: mq.Envelope{
		Type:    mq.MessageTypeNodeOutput,
		Payload: map[string]any{"node_id": uuid.NewString(), "dispatch_id": uuid.NewString()},
	}}
	if err := o.handleNodeOutput(context.Background(), d); err != nil {
		t.Errorf("expected ack for deleted source, got %v", err)
	}
}

func TestHandleNodeOutput_BadPayload(t *testing.T) {
	o, _, _, _ := setup()

	d := &mq.Delivery{Envelope: mq.Envelope{
		Type:    mq.MessageTypeNodeOutput,
		Payload: map[string]any{"node_id": 7},
	}}
	if err := o.handleNodeOutput(context.Background(), d); !errors.Is(err, mq.ErrPermanent) {
		t.Errorf("expected ErrPermanent, got %v", err)
	}
}

// --- routeState Tests ---

func TestRouteState_Totals(t *testing.T) {
	s := newRouteState()
	a, b := uuid.New(), uuid.New()

	s.routed(a)
	s.routed(b)
	s.duplicate(a)
	s.dropped(b)

	totals := s.totals()
	if totals.Routed != 2 || totals.Duplicates != 1 || totals.Dropped != 1 {
		t.Errorf("unexpected totals: %+v", totals)
	}
	if totals.LastRoutedAt == nil {
		t.Error("LastRoutedAt should be set")
	}

	if _, ok := s.get(uuid.New()); ok {
		t.Error("unknown node should have no stats")
	}
}
