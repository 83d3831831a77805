package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/repo"
)

// handleNodeOutput обрабатывает событие из nodes.output.
func (o *Orchestrator) handleNodeOutput(ctx context.Context, d *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.NodeOutputPayload](&d.Envelope)
	if err != nil {
		o.logger.Error("failed to parse node.output payload", "error", err)
		return err
	}

	err = o.Route(ctx, payload)
	if errors.Is(err, ErrSourceNodeNotFound) {
		o.logger.Warn("dropping output of deleted node", "node_id", payload.NodeID)
		return nil
	}
	return err
}

// Route создаёт dispatch для каждого wire узла-источника.
//
// Каждый получатель получает свою копию сообщения. Ключ идемпотентности —
// dispatch-источник, номер сообщения внутри него и получатель: повторная
// доставка того же вывода не создаёт новых dispatch, а все чанки потока
// и выводы разных источников в один узел (fan-in) проходят.
func (o *Orchestrator) Route(ctx context.Context, out mq.NodeOutputPayload) error {
	if o.IsStopped() {
		return ErrOrchestratorStopped
	}

	source, err := o.nodes.GetByID(ctx, out.NodeID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSourceNodeNotFound, out.NodeID)
	}
	if err != nil {
		return fmt.Errorf("get source node: %w", err)
	}

	if !source.HasWires() {
		o.state.dropped(source.ID)
		o.logger.Debug("node has no wires, output dropped", "node_id", source.ID)
		return nil
	}

	var errs []error
	for _, target := range source.Wires {
		if err := o.forward(ctx, out, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// outputKey — ключ идемпотентности вывода для одного получателя.
// Seq = 0 (вывод без номера) заменяется _msgid сообщения.
func outputKey(out mq.NodeOutputPayload, target uuid.UUID) string {
	if out.Seq == 0 {
		return fmt.Sprintf("%s:%s:%s", out.DispatchID, out.Message.ID(), target)
	}
	return fmt.Sprintf("%s:%d:%s", out.DispatchID, out.Seq, target)
}

func (o *Orchestrator) forward(ctx context.Context, out mq.NodeOutputPayload, target uuid.UUID) error {
	sourceDispatch := out.DispatchID
	d := &domain.Dispatch{
		ID:               uuid.New(),
		NodeID:           target,
		State:            domain.DispatchStateQueued,
		Input:            out.Message.Clone(),
		IdempotencyKey:   outputKey(out, target),
		SourceDispatchID: &sourceDispatch,
	}

	err := o.dispatches.Create(ctx, d)
	switch {
	case errors.Is(err, repo.ErrAlreadyExists):
		o.state.duplicate(out.NodeID)
		o.logger.Debug("duplicate output ignored",
			"node_id", out.NodeID,
			"target", target,
			"idempotency_key", d.IdempotencyKey,
		)
		return nil
	case err != nil:
		return fmt.Errorf("create dispatch for %s: %w", target, err)
	}

	o.state.routed(out.NodeID)

	if o.publisher != nil {
		if err := o.publisher.PublishNodeInput(ctx, d.ID, target); err != nil {
			// Воркер подхватит dispatch через polling.
			o.logger.Warn("failed to publish node input", "dispatch_id", d.ID, "error", err)
		}
	}

	o.logger.Debug("output routed",
		"node_id", out.NodeID,
		"target", target,
		"dispatch_id", d.ID,
	)
	return nil
}
