package scheduler

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/repo"
)

type fakeSchedules struct {
	due     []domain.Schedule
	updated []domain.Schedule
	listErr error
}

func (f *fakeSchedules) ListDue(context.Context, time.Time, int) ([]domain.Schedule, error) {
	return append([]domain.Schedule(nil), f.due...), f.listErr
}

func (f *fakeSchedules) Update(_ context.Context, s *domain.Schedule) error {
	f.updated = append(f.updated, *s)
	return nil
}

type fakeDispatches struct {
	byKey   map[string]*domain.Dispatch
	created []*domain.Dispatch
}

func (f *fakeDispatches) Create(_ context.Context, d *domain.Dispatch) error {
	if f.byKey == nil {
		f.byKey = make(map[string]*domain.Dispatch)
	}
	if _, ok := f.byKey[d.IdempotencyKey]; ok {
		return repo.ErrAlreadyExists
	}
	f.byKey[d.IdempotencyKey] = d
	f.created = append(f.created, d)
	return nil
}

func (f *fakeDispatches) GetByIdempotencyKey(_ context.Context, _ uuid.UUID, key string) (*domain.Dispatch, error) {
	if d, ok := f.byKey[key]; ok {
		return d, nil
	}
	return nil, repo.ErrNotFound
}

type fakeNodes map[uuid.UUID]bool

func (f fakeNodes) GetByID(_ context.Context, id uuid.UUID) (*domain.Node, error) {
	if !f[id] {
		return nil, repo.ErrNotFound
	}
	return &domain.Node{ID: id}, nil
}

type fakePublisher struct {
	published []uuid.UUID
	err       error
}

func (p *fakePublisher) PublishNodeInput(_ context.Context, dispatchID, _ uuid.UUID) error {
	p.published = append(p.published, dispatchID)
	return p.err
}

func dueSchedule(nodeID uuid.UUID, due time.Time) domain.Schedule {
	return domain.Schedule{
		ID:          uuid.New(),
		NodeID:      nodeID,
		Name:        "every-minute",
		IntervalSec: 60,
		Timezone:    "UTC",
		Enabled:     true,
		NextDueAt:   &due,
		Message:     map[string]any{"topic": "tick", "action": "inspect"},
	}
}

func newTestScheduler(due ...domain.Schedule) (*Scheduler, *fakeSchedules, *fakeDispatches, *fakePublisher, fakeNodes) {
	schedules := &fakeSchedules{due: due}
	dispatches := &fakeDispatches{}
	pub := &fakePublisher{}
	nodes := fakeNodes{}
	for _, s := range due {
		nodes[s.NodeID] = true
	}

	s := New(Config{
		Schedules:  schedules,
		Dispatches: dispatches,
		Nodes:      nodes,
		Publisher:  pub,
	})
	return s, schedules, dispatches, pub, nodes
}

func TestTick_CreatesDispatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Second)
	sched := dueSchedule(uuid.New(), due)

	s, schedules, dispatches, pub, _ := newTestScheduler(sched)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, dispatches.created, 1)
	d := dispatches.created[0]
	assert.Equal(t, sched.NodeID, d.NodeID)
	assert.Equal(t, domain.DispatchStateQueued, d.State)
	assert.Equal(t, sched.ID.String()+"_"+itoa(due.Unix()), d.IdempotencyKey)
	assert.Equal(t, "tick", d.Input["topic"])
	assert.NotEmpty(t, d.Input.ID())
	assert.NotNil(t, d.Input.Payload())

	require.Len(t, schedules.updated, 1)
	updated := schedules.updated[0]
	assert.Equal(t, now.Add(time.Minute), *updated.NextDueAt)
	assert.Equal(t, d.ID, *updated.LastDispatchID)

	assert.Equal(t, []uuid.UUID{d.ID}, pub.published)
}

func TestTick_Idempotent(t *testing.T) {
	now := time.Now().UTC()
	sched := dueSchedule(uuid.New(), now.Add(-time.Minute))

	s, schedules, dispatches, pub, _ := newTestScheduler(sched)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Tick(context.Background()))
	// Тот же next_due_at: например, предыдущий тик упал до Update.
	require.NoError(t, s.Tick(context.Background()))

	assert.Len(t, dispatches.created, 1)
	assert.Len(t, schedules.updated, 2)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, dispatches.created[0].ID, *schedules.updated[1].LastDispatchID)
}

func TestTick_NodeMissing(t *testing.T) {
	sched := dueSchedule(uuid.New(), time.Now().Add(-time.Second))
	s, schedules, dispatches, _, nodes := newTestScheduler(sched)
	delete(nodes, sched.NodeID)

	require.NoError(t, s.Tick(context.Background()))
	assert.Empty(t, dispatches.created)
	assert.Empty(t, schedules.updated)
}

func TestTick_ListError(t *testing.T) {
	s, schedules, _, _, _ := newTestScheduler()
	schedules.listErr = errors.New("db down")

	assert.Error(t, s.Tick(context.Background()))
}

func TestTick_PublishErrorNotFatal(t *testing.T) {
	sched := dueSchedule(uuid.New(), time.Now().Add(-time.Second))
	s, schedules, dispatches, pub, _ := newTestScheduler(sched)
	pub.err = errors.New("channel closed")

	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, dispatches.created, 1)
	assert.Len(t, schedules.updated, 1)
}

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

	t.Run("interval", func(t *testing.T) {
		next, err := CalculateNextDue(&domain.Schedule{IntervalSec: 90}, from)
		require.NoError(t, err)
		assert.Equal(t, from.Add(90*time.Second), next)
	})

	t.Run("cron", func(t *testing.T) {
		next, err := CalculateNextDue(&domain.Schedule{CronExpr: "0 9 * * *", Timezone: "UTC"}, from)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("cron in timezone", func(t *testing.T) {
		// 08:30 UTC = 11:30 MSK, следующее 09:00 MSK — завтра в 06:00 UTC.
		next, err := CalculateNextDue(&domain.Schedule{CronExpr: "0 9 * * *", Timezone: "Europe/Moscow"}, from)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), next)
	})

	t.Run("descriptor", func(t *testing.T) {
		next, err := CalculateNextDue(&domain.Schedule{CronExpr: "@hourly"}, from)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("no trigger", func(t *testing.T) {
		_, err := CalculateNextDue(&domain.Schedule{}, from)
		assert.ErrorIs(t, err, ErrNoTrigger)
	})

	t.Run("bad cron", func(t *testing.T) {
		_, err := CalculateNextDue(&domain.Schedule{CronExpr: "not a cron"}, from)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	node := uuid.New()

	assert.NoError(t, Validate(&domain.Schedule{NodeID: node, CronExpr: "*/5 * * * *"}))
	assert.NoError(t, Validate(&domain.Schedule{NodeID: node, IntervalSec: 30, Timezone: "Europe/Moscow"}))

	assert.Error(t, Validate(&domain.Schedule{CronExpr: "*/5 * * * *"}))
	assert.ErrorIs(t, Validate(&domain.Schedule{NodeID: node}), ErrNoTrigger)
	assert.Error(t, Validate(&domain.Schedule{NodeID: node, CronExpr: "61 * * * *"}))
	assert.Error(t, Validate(&domain.Schedule{NodeID: node, IntervalSec: 5, Timezone: "Mars/Olympus"}))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
