package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/dispatch"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
)

// DispatchStore — операции с dispatch, которые нужны воркеру.
type DispatchStore interface {
	Claim(ctx context.Context, id uuid.UUID) (*domain.Dispatch, error)
	ListQueued(ctx context.Context, limit int) ([]domain.Dispatch, error)
	UpdateState(ctx context.Context, id uuid.UUID, state domain.DispatchState, action string) error
	Finish(ctx context.Context, d *domain.Dispatch) error
}

// NodeStore — чтение узлов.
type NodeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error)
}

// Worker забирает dispatch и выполняет их через dispatch.Engine.
type Worker struct {
	dispatches DispatchStore
	nodes      NodeStore
	engine     *dispatch.Engine
	publisher  Publisher
	conn       *mq.Connection
	consumer   *mq.Consumer

	pollInterval time.Duration
	batchSize    int

	logger    *slog.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	inflight  sync.WaitGroup
	stopped   bool
	stoppedMu sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Dispatches DispatchStore
	Nodes      NodeStore
	Engine     *dispatch.Engine

	// Publisher — nil, если RabbitMQ недоступен (только polling).
	Publisher Publisher
	Conn      *mq.Connection

	PollInterval time.Duration // default: 10s
	BatchSize    int           // default: 50

	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Worker{
		dispatches:   cfg.Dispatches,
		nodes:        cfg.Nodes,
		engine:       cfg.Engine,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		logger:       cfg.Logger,
	}
}

// Start запускает consumer nodes.input (если есть соединение) и polling.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueNodesInput),
			Handler:  w.handleNodeInput,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("node input consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает приём dispatch и ждёт фоновые вызовы.
// Потоки завершаются отменой контекста Start.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancel != nil {
		w.cancel()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()
	w.inflight.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый проход сразу: подхватываем dispatch, созданные пока воркер был выключен.
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	queued, err := w.dispatches.ListQueued(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list queued dispatches", "error", err)
		return
	}
	if len(queued) == 0 {
		return
	}

	w.logger.Debug("poll found queued dispatches", "count", len(queued))

	for i := range queued {
		if err := w.processDispatch(ctx, queued[i].ID); err != nil && !errors.Is(err, ErrDispatchNotQueued) {
			w.logger.Error("failed to process dispatch from poll",
				"dispatch_id", queued[i].ID,
				"error", err,
			)
		}
	}
}
