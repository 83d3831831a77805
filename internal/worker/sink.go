package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/mq"
)

const publishTimeout = 5 * time.Second

// Publisher — то, что воркер публикует в RabbitMQ.
type Publisher interface {
	PublishNodeOutput(ctx context.Context, payload mq.NodeOutputPayload) error
	PublishNodeStatus(ctx context.Context, payload mq.NodeStatusPayload) error
}

// mqSink — dispatch.Sink поверх Publisher.
//
// Ошибки публикации логируются и не прерывают dispatch: состояние
// dispatch в БД остаётся источником правды.
type mqSink struct {
	ctx        context.Context
	publisher  Publisher
	nodeID     uuid.UUID
	dispatchID uuid.UUID
	logger     *slog.Logger

	seq atomic.Int64
}

func newSink(ctx context.Context, publisher Publisher, d *domain.Dispatch, logger *slog.Logger) *mqSink {
	return &mqSink{
		// Статусы и сообщения публикуются и во время остановки процесса.
		ctx:        context.WithoutCancel(ctx),
		publisher:  publisher,
		nodeID:     d.NodeID,
		dispatchID: d.ID,
		logger:     logger,
	}
}

func (s *mqSink) Send(msg domain.Message) {
	if s.publisher == nil {
		s.logger.Debug("publisher not available, dropping output", "msg_id", msg.ID())
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, publishTimeout)
	defer cancel()

	err := s.publisher.PublishNodeOutput(ctx, mq.NodeOutputPayload{
		NodeID:     s.nodeID,
		DispatchID: s.dispatchID,
		Seq:        s.seq.Add(1),
		Message:    msg,
	})
	if err != nil {
		s.logger.Warn("failed to publish node output", "error", err)
	}
}

func (s *mqSink) Status(update domain.StatusUpdate) {
	s.publishStatus(mq.NodeStatusPayload{Status: &update})
}

func (s *mqSink) Log(entry domain.LogEntry) {
	switch entry.Level {
	case domain.LogLevelError:
		s.logger.Error(entry.Text)
	case domain.LogLevelWarn:
		s.logger.Warn(entry.Text)
	default:
		s.logger.Info(entry.Text)
	}
	s.publishStatus(mq.NodeStatusPayload{Log: &entry})
}

func (s *mqSink) publishStatus(payload mq.NodeStatusPayload) {
	if s.publisher == nil {
		return
	}
	payload.NodeID = s.nodeID
	payload.DispatchID = s.dispatchID

	ctx, cancel := context.WithTimeout(s.ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.PublishNodeStatus(ctx, payload); err != nil {
		s.logger.Warn("failed to publish node status", "error", err)
	}
}
