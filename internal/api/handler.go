package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/actions"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/repo"
)

// NodeStore — операции с узлами.
type NodeStore interface {
	Create(ctx context.Context, n *domain.Node) error
	Upsert(ctx context.Context, n *domain.Node) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error)
	GetByName(ctx context.Context, name string) (*domain.Node, error)
	List(ctx context.Context, filter repo.NodeFilter) ([]domain.Node, error)
	Update(ctx context.Context, n *domain.Node) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DispatchStore — операции с dispatch.
type DispatchStore interface {
	Create(ctx context.Context, d *domain.Dispatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispatch, error)
	List(ctx context.Context, filter repo.DispatchFilter) ([]domain.Dispatch, error)
}

// ScheduleStore — операции с расписаниями.
type ScheduleStore interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

// Publisher — публикация node.input после inject.
type Publisher interface {
	PublishNodeInput(ctx context.Context, dispatchID, nodeID uuid.UUID) error
}

// Searcher — списки ресурсов Docker для автодополнения.
type Searcher interface {
	ListContainers(ctx context.Context, options map[string]any) (any, error)
	ListVolumes(ctx context.Context, options map[string]any) (any, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	nodes      NodeStore
	dispatches DispatchStore
	schedules  ScheduleStore
	publisher  Publisher
	searcher   Searcher
	router     *actions.Router
	hub        *Hub
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Nodes      NodeStore
	Dispatches DispatchStore
	Schedules  ScheduleStore

	// Publisher — nil без RabbitMQ: воркеры заберут dispatch через polling.
	Publisher Publisher

	// Searcher — nil без Docker: discovery отвечает 503.
	Searcher Searcher

	// Router — таблицы действий для валидации узлов. По умолчанию DefaultRouter.
	Router *actions.Router

	// Hub — рассылка статусов по WebSocket. nil отключает /status/ws.
	Hub *Hub

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Router == nil {
		cfg.Router = actions.DefaultRouter()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		nodes:      cfg.Nodes,
		dispatches: cfg.Dispatches,
		schedules:  cfg.Schedules,
		publisher:  cfg.Publisher,
		searcher:   cfg.Searcher,
		router:     cfg.Router,
		hub:        cfg.Hub,
		logger:     cfg.Logger,
	}
}
