package notification

import (
	"context"
	"database/sql"
	"encoding/json"

	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives lifecycle events. Implementations must be fire-and-forget:
// a failing sink never fails the operation that produced the event.
//
//go:generate mockgen -source=sink.go -destination=mock/sink_mock.go -package=mock
type Sink interface {
	// WithTx binds the sink to an open transaction so the event record
	// commits or rolls back together with the state change.
	WithTx(tx *sql.Tx) Sink
	Notify(ctx context.Context, event events.LeaveLifecycleEvent)
}

// outboxSink records events in the transactional outbox; the kafka producer
// worker delivers them asynchronously.
type outboxSink struct {
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxSink(outbox kafka.OutboxRepository, logger ...*zap.Logger) Sink {
	l := zap.L().Named("notification.outbox")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.outbox")
	}
	return &outboxSink{outbox: outbox, logger: l}
}

func (s *outboxSink) WithTx(tx *sql.Tx) Sink {
	return &outboxSink{outbox: s.outbox.WithTx(tx), logger: s.logger}
}

func (s *outboxSink) Notify(ctx context.Context, event events.LeaveLifecycleEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal notification failed",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return
	}

	record := kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   event.RequestID,
		EventType:     event.EventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}

	if err := s.outbox.Create(ctx, record); err != nil {
		s.logger.Error("record notification failed",
			zap.String("event_type", event.EventType),
			zap.String("leave_request_id", event.RequestID),
			zap.Error(err),
		)
	}
}

// NopSink discards events. Used in tests and when messaging is disabled.
type NopSink struct{}

func (NopSink) WithTx(tx *sql.Tx) Sink { return NopSink{} }

func (NopSink) Notify(ctx context.Context, event events.LeaveLifecycleEvent) {}
