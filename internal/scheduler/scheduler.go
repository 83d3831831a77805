package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/repo"
)

// ScheduleStore — операции с schedules.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
}

// DispatchStore — создание dispatch.
type DispatchStore interface {
	Create(ctx context.Context, d *domain.Dispatch) error
	GetByIdempotencyKey(ctx context.Context, nodeID uuid.UUID, key string) (*domain.Dispatch, error)
}

// NodeStore — проверка существования узла.
type NodeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error)
}

// Publisher — публикация node.input.
type Publisher interface {
	PublishNodeInput(ctx context.Context, dispatchID, nodeID uuid.UUID) error
}

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	schedules  ScheduleStore
	dispatches DispatchStore
	nodes      NodeStore
	publisher  Publisher
	logger     *slog.Logger
	batchSize  int
	now        func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules  ScheduleStore
	Dispatches DispatchStore
	Nodes      NodeStore
	Publisher  Publisher
	Logger     *slog.Logger
	BatchSize  int // количество schedules за один тик (default: 100)
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules:  cfg.Schedules,
		dispatches: cfg.Dispatches,
		nodes:      cfg.Nodes,
		publisher:  cfg.Publisher,
		logger:     logger,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule создаёт dispatch с новым сообщением
// 3. Обновляет next_due_at
// 4. Публикует node.input в RabbitMQ
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		ok, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if ok {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"dispatches_created", created,
	)
	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если dispatch был создан (не дубликат).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	if _, err := s.nodes.GetByID(ctx, sched.NodeID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("node not found for schedule, skipping",
				"schedule_id", sched.ID,
				"node_id", sched.NodeID,
			)
			return false, nil
		}
		return false, fmt.Errorf("get node: %w", err)
	}

	// Один dispatch на schedule и конкретное время срабатывания.
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	existing, err := s.dispatches.GetByIdempotencyKey(ctx, sched.NodeID, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var created bool
	var dispatchID uuid.UUID

	if existing != nil {
		s.logger.Debug("dispatch already exists (idempotency)",
			"schedule_id", sched.ID,
			"dispatch_id", existing.ID,
			"idempotency_key", idempKey,
		)
		dispatchID = existing.ID
	} else {
		d := &domain.Dispatch{
			ID:             uuid.New(),
			NodeID:         sched.NodeID,
			State:          domain.DispatchStateQueued,
			Input:          sched.BuildMessage(),
			IdempotencyKey: idempKey,
			CreatedAt:      now,
		}
		if err := s.dispatches.Create(ctx, d); err != nil {
			if !errors.Is(err, repo.ErrAlreadyExists) {
				return false, fmt.Errorf("create dispatch: %w", err)
			}
		} else {
			created = true
			s.logger.Info("created dispatch from schedule",
				"dispatch_id", d.ID,
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"node_id", sched.NodeID,
			)
		}
		dispatchID = d.ID
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// next_due_at не трогаем: schedule некорректный.
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		return created, nil
	}

	sched.RecordRun(dispatchID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return created, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && created {
		if err := s.publisher.PublishNodeInput(ctx, dispatchID, sched.NodeID); err != nil {
			// Воркер заберёт dispatch через polling.
			s.logger.Warn("failed to publish node.input",
				"dispatch_id", dispatchID,
				"error", err,
			)
		}
	}

	return created, nil
}
