package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/mq"
)

const defaultPrefetch = 20

// NodeStore — чтение узлов.
type NodeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error)
}

// DispatchStore — создание dispatch.
type DispatchStore interface {
	Create(ctx context.Context, d *domain.Dispatch) error
}

// Publisher — публикация node.input.
type Publisher interface {
	PublishNodeInput(ctx context.Context, dispatchID, nodeID uuid.UUID) error
}

// Orchestrator пересылает исходящие сообщения узлов по wires.
type Orchestrator struct {
	nodes      NodeStore
	dispatches DispatchStore
	publisher  Publisher
	conn       *mq.Connection

	consumer *mq.Consumer
	state    *routeState

	logger    *slog.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopped   bool
	stoppedMu sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	Nodes      NodeStore
	Dispatches DispatchStore

	Publisher Publisher
	Conn      *mq.Connection

	Logger *slog.Logger
}

// New создаёт Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		nodes:      cfg.Nodes,
		dispatches: cfg.Dispatches,
		publisher:  cfg.Publisher,
		conn:       cfg.Conn,
		state:      newRouteState(),
		logger:     logger,
	}
}

// Start запускает consumer nodes.output.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.logger.Info("starting orchestrator")

	o.consumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueNodesOutput),
		Handler:  o.handleNodeOutput,
		Prefetch: defaultPrefetch,
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("node output consumer error", "error", err)
		}
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает Orchestrator.
func (o *Orchestrator) Stop() {
	o.stoppedMu.Lock()
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator...")

	if o.cancel != nil {
		o.cancel()
	}
	if o.consumer != nil {
		o.consumer.Stop()
	}

	o.wg.Wait()

	totals := o.state.totals()
	o.logger.Info("orchestrator stopped",
		"routed", totals.Routed,
		"duplicates", totals.Duplicates,
		"dropped", totals.Dropped,
	)
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.stoppedMu.RLock()
	defer o.stoppedMu.RUnlock()
	return o.stopped
}

// Stats возвращает счётчики пересылки для узла-источника.
func (o *Orchestrator) Stats(nodeID uuid.UUID) (RouteStats, bool) {
	return o.state.get(nodeID)
}

// Totals возвращает суммарные счётчики.
func (o *Orchestrator) Totals() RouteStats {
	return o.state.totals()
}
