package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/actions"
	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/notify"
	"github.com/shaiso/dockflow/internal/outcome"
	"github.com/shaiso/dockflow/internal/resolve"
	"github.com/shaiso/dockflow/internal/telemetry"
)

// Materializer превращает бинарный результат в значение payload.
type Materializer interface {
	Materialize(ctx context.Context, key string, blob *docker.Blob) (any, error)
}

// Config — настройки Engine.
type Config struct {
	Client    docker.Client
	Router    *actions.Router
	Artifacts Materializer
	Logger    *slog.Logger
}

// Engine выполняет dispatch. Клиент Docker общий для всех вызовов
// и только читается.
type Engine struct {
	client    docker.Client
	router    *actions.Router
	artifacts Materializer
	notifier  *notify.Notifier
	logger    *slog.Logger

	wg sync.WaitGroup
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	if cfg.Router == nil {
		cfg.Router = actions.DefaultRouter()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Artifacts == nil {
		cfg.Artifacts = inlineOnly{}
	}
	return &Engine{
		client:    cfg.Client,
		router:    cfg.Router,
		artifacts: cfg.Artifacts,
		notifier:  notify.New(),
		logger:    cfg.Logger,
	}
}

// Router возвращает таблицы операций.
func (e *Engine) Router() *actions.Router {
	return e.router
}

// Dispatch обрабатывает одно сообщение.
//
// MissingRequiredField и UnknownAction возвращаются ошибкой: в Sink уходит
// только сброс статуса и уведомление, сообщений нет. Иначе вызов
// запускается в фоне, результат — через Pending и Sink.
func (e *Engine) Dispatch(ctx context.Context, node *domain.Node, msg domain.Message, sink Sink) (*Pending, error) {
	key := msg.ID()
	if key == "" {
		key = uuid.NewString()
	}
	p := newPending(key)

	logger := e.logger.With("msg_id", key)
	if node != nil {
		logger = telemetry.WithNodeID(logger, node.ID.String())
	}

	sink.Status(domain.StatusClear)

	p.setState(domain.DispatchStateResolving)
	req, err := resolve.Resolve(node, msg)
	if err != nil {
		return p, e.fail(logger, p, sink, err)
	}
	p.Request = req
	logger = telemetry.WithAction(logger, req.Kind.String(), req.Action)

	p.setState(domain.DispatchStateRouting)
	op, err := e.router.Route(req.Kind, req.Action)
	if err != nil {
		return p, e.fail(logger, p, sink, err)
	}

	p.setState(domain.DispatchStateInvoking)
	call := &actions.Call{Client: e.client, Request: req}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if op.Mode == actions.ModeStream {
			e.runStream(ctx, logger, op, call, msg, p, sink)
		} else {
			e.runUnary(ctx, logger, op, call, msg, p, sink)
		}
	}()

	return p, nil
}

// Wait ждёт завершения всех запущенных вызовов.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) fail(logger *slog.Logger, p *Pending, sink Sink, err error) error {
	logger.Error("dispatch rejected", "error", err)
	deliver(sink, p, notify.Fatal(err))

	kind, action := "", ""
	if p.Request != nil {
		kind, action = p.Request.Kind.String(), p.Request.Action
	}
	telemetry.DispatchTotal.WithLabelValues(kind, action, "failed").Inc()

	p.finish(domain.DispatchStateFailed, err)
	return err
}

func (e *Engine) runUnary(ctx context.Context, logger *slog.Logger, op *actions.Operation, call *actions.Call, msg domain.Message, p *Pending, sink Sink) {
	req := call.Request

	start := time.Now()
	value, err := op.Unary(ctx, call)
	telemetry.DispatchDuration.WithLabelValues(req.Kind.String(), req.Action).Observe(time.Since(start).Seconds())

	if err == nil {
		value, err = e.materialize(ctx, p.Key, value)
	}

	o := outcome.Classify(op.Policy, value, err)
	p.record(o)
	telemetry.DispatchTotal.WithLabelValues(req.Kind.String(), req.Action, string(o.Kind)).Inc()

	if o.Kind.IsFailure() {
		logger.Warn("docker call failed", "outcome", o.Kind, "status_code", o.StatusCode, "reason", o.Reason)
	} else {
		logger.Debug("docker call completed", "duration", time.Since(start))
	}

	deliver(sink, p, e.notifier.Result(req, op.Label, op.Policy, msg, o))
	p.finish(domain.DispatchStateCompleted, nil)
}

func (e *Engine) runStream(ctx context.Context, logger *slog.Logger, op *actions.Operation, call *actions.Call, msg domain.Message, p *Pending, sink Sink) {
	req := call.Request
	em := &emitter{
		engine: e,
		op:     op,
		req:    req,
		msg:    msg,
		p:      p,
		sink:   sink,
	}

	err := op.Stream(ctx, call, em)
	if em.connected {
		telemetry.StreamsActive.Dec()
	}

	last := p.Outcome()
	outcomeLabel := "stream"
	if last != nil {
		outcomeLabel = string(last.Kind)
	}

	switch {
	case err == nil:
		state := domain.DispatchStateCompleted
		if em.connected {
			state = domain.DispatchStateStreamClosed
		}
		telemetry.DispatchTotal.WithLabelValues(req.Kind.String(), req.Action, outcomeLabel).Inc()
		p.finish(state, nil)

	case errors.Is(err, actions.ErrStreamClosed):
		logger.Warn("stream closed", "frames", p.Emitted())
		deliver(sink, p, notify.Closed(req.ResourceID))
		telemetry.DispatchTotal.WithLabelValues(req.Kind.String(), req.Action, "closed").Inc()
		p.finish(domain.DispatchStateStreamClosed, nil)

	case ctx.Err() != nil:
		logger.Warn("stream ended", "frames", p.Emitted())
		deliver(sink, p, notify.Ended(req.ResourceID))
		telemetry.DispatchTotal.WithLabelValues(req.Kind.String(), req.Action, "ended").Inc()
		p.finish(domain.DispatchStateStreamClosed, nil)

	default:
		logger.Error("stream error", "error", err)
		deliver(sink, p, notify.Errored(req.ResourceID, err))
		telemetry.DispatchTotal.WithLabelValues(req.Kind.String(), req.Action, "error").Inc()
		p.finish(domain.DispatchStateFailed, err)
	}
}

// materialize заменяет Blob на []byte или ссылку на S3.
func (e *Engine) materialize(ctx context.Context, key string, value any) (any, error) {
	blob, ok := value.(*docker.Blob)
	if !ok {
		return value, nil
	}
	return e.artifacts.Materialize(ctx, key, blob)
}

// deliver отдаёт DispatchResult в Sink: сообщения, затем статус, затем лог.
// Пустой статус не отправляется: сброс делает только Dispatch.
func deliver(sink Sink, p *Pending, res domain.DispatchResult) {
	for _, ev := range res.Events {
		sink.Send(ev)
		p.sent()
	}
	if res.Outbound != nil {
		sink.Send(res.Outbound)
		p.sent()
	}
	if !res.Status.IsClear() {
		sink.Status(res.Status)
	}
	if !res.Log.IsEmpty() {
		sink.Log(res.Log)
	}
}

// emitter связывает потоковую операцию с Sink.
type emitter struct {
	engine    *Engine
	op        *actions.Operation
	req       *domain.ActionRequest
	msg       domain.Message
	p         *Pending
	sink      Sink
	connected bool
}

func (em *emitter) Connected() {
	if !em.connected {
		em.connected = true
		telemetry.StreamsActive.Inc()
	}
	em.p.setState(domain.DispatchStateStreamActive)
	deliver(em.sink, em.p, notify.Connected())
}

func (em *emitter) Frame(event map[string]any) {
	telemetry.StreamFramesTotal.WithLabelValues(em.req.Action).Inc()
	res := notify.Connected()
	res.Events = []domain.Message{notify.Frame(event)}
	deliver(em.sink, em.p, res)
}

func (em *emitter) Result(value any, err error) {
	o := outcome.Classify(em.op.Policy, value, err)
	em.p.record(o)
	if em.connected && o.Kind == domain.OutcomeSuccess {
		telemetry.StreamFramesTotal.WithLabelValues(em.req.Action).Inc()
	}
	res := em.engine.notifier.Result(em.req, em.op.Label, em.op.Policy, em.msg, o)
	if em.connected && res.Outbound != nil {
		// Чанк потока — новое сообщение, а не повтор входного.
		res.Outbound[domain.MsgKeyID] = uuid.NewString()
	}
	deliver(em.sink, em.p, res)
}

func (em *emitter) Diagnostic(text string) {
	deliver(em.sink, em.p, notify.Diagnostic(text))
}

func (em *emitter) ParseError(err error) {
	telemetry.StreamParseErrorsTotal.Inc()
	em.engine.logger.Error("dropped stream frame", "action", em.req.Action, "error", err)
	deliver(em.sink, em.p, notify.Diagnostic(err.Error()))
}

var _ actions.Emitter = (*emitter)(nil)
