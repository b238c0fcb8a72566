// Package notify provides NotificationSink implementations: a structured log
// sink, a sink that stores notifications through the unit of work, and a
// fan-out over several sinks.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
	"orderflow/internal/core/ports"
)

// LogSink writes every event to the logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "notification_log")}
}

func (s *LogSink) Notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) error {
	attrs := make([]any, 0, 4+2*len(payload))
	attrs = append(attrs, "order_id", orderID.String(), "event_type", string(eventType))
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, "order notification", attrs...)
	return nil
}

// StoreSink persists every event as a notification row.
type StoreSink struct {
	uowFactory ports.UnitOfWorkFactory
	now        func() time.Time
}

func NewStoreSink(uowFactory ports.UnitOfWorkFactory) *StoreSink {
	return &StoreSink{uowFactory: uowFactory, now: time.Now}
}

func (s *StoreSink) Notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) error {
	n, err := notification.NewNotification(kernel.NewUUID(), orderID, eventType, payload, s.now())
	if err != nil {
		return err
	}
	return s.uowFactory.Create().NotificationRepository().Add(ctx, n)
}

// FanOut delivers to every sink and joins their errors. One failing sink
// does not stop the others.
type FanOut []ports.NotificationSink

func (f FanOut) Notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, orderID, eventType, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
