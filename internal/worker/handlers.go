package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/dispatch"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/repo"
	"github.com/shaiso/dockflow/internal/telemetry"
)

// handleNodeInput обрабатывает событие из nodes.input.
func (w *Worker) handleNodeInput(ctx context.Context, d *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.NodeInputPayload](&d.Envelope)
	if err != nil {
		w.logger.Error("failed to parse node.input payload", "error", err)
		return err
	}

	err = w.processDispatch(ctx, payload.DispatchID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDispatchNotFound), errors.Is(err, ErrDispatchNotQueued):
		// Повторная доставка или dispatch уже забран через polling.
		w.logger.Debug("dispatch not processed", "dispatch_id", payload.DispatchID, "reason", err)
		return nil
	default:
		return err
	}
}

// processDispatch забирает dispatch и запускает его.
// Возвращается, как только удалённый вызов запущен.
func (w *Worker) processDispatch(ctx context.Context, id uuid.UUID) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	d, err := w.dispatches.Claim(ctx, id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrDispatchNotFound, id)
	case errors.Is(err, repo.ErrInvalidState):
		return ErrDispatchNotQueued
	case err != nil:
		return fmt.Errorf("claim dispatch: %w", err)
	}

	logger := telemetry.WithDispatchID(w.logger, d.ID.String())
	logger = telemetry.WithNodeID(logger, d.NodeID.String())

	node, err := w.nodes.GetByID(ctx, d.NodeID)
	if err != nil {
		errText := err.Error()
		if errors.Is(err, repo.ErrNotFound) {
			errText = ErrNodeNotFound.Error()
		}
		d.MarkFinished(domain.DispatchStateFailed, "", errText)
		return w.finish(ctx, d)
	}

	sink := newSink(ctx, w.publisher, d, logger)
	pending, err := w.engine.Dispatch(telemetry.WithLogger(ctx, logger), node, d.Input, sink)
	if err != nil {
		logger.Warn("dispatch rejected", "error", err)
		d.Action = requestAction(pending)
		d.MarkFinished(domain.DispatchStateFailed, "", err.Error())
		return w.finish(ctx, d)
	}

	d.Action = pending.Request.Action
	if err := w.dispatches.UpdateState(ctx, d.ID, domain.DispatchStateInvoking, d.Action); err != nil {
		logger.Warn("failed to update dispatch state", "error", err)
	}

	logger.Info("dispatch started", "kind", node.Kind, "action", d.Action)

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		<-pending.Done()
		w.complete(ctx, d, pending)
	}()

	return nil
}

// complete записывает итог dispatch.
func (w *Worker) complete(ctx context.Context, d *domain.Dispatch, p *dispatch.Pending) {
	var kind domain.OutcomeKind
	if o := p.Outcome(); o != nil {
		kind = o.Kind
	}
	errText := ""
	if err := p.Err(); err != nil {
		errText = err.Error()
	}

	d.Emitted = p.Emitted()
	d.MarkFinished(p.State(), kind, errText)

	if err := w.finish(context.WithoutCancel(ctx), d); err != nil {
		w.logger.Error("failed to record dispatch result", "dispatch_id", d.ID, "error", err)
		return
	}

	w.logger.Info("dispatch finished",
		"dispatch_id", d.ID,
		"state", d.State,
		"outcome", d.Outcome,
		"emitted", d.Emitted,
		"duration", d.Duration(),
	)
}

func (w *Worker) finish(ctx context.Context, d *domain.Dispatch) error {
	if err := w.dispatches.Finish(ctx, d); err != nil {
		return fmt.Errorf("finish dispatch: %w", err)
	}
	return nil
}

func requestAction(p *dispatch.Pending) string {
	if p == nil || p.Request == nil {
		return ""
	}
	return p.Request.Action
}
