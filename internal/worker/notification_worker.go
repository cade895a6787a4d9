package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/events"
	"github.com/spec-kit/ticketbot/internal/service"
)

// ErrWorkerStopped is returned by Publish once the worker is shutting down.
var ErrWorkerStopped = errors.New("notification worker stopped")

// NotificationWorker is an events.Dispatcher that hands each published event
// to the inner dispatcher on its own bounded pool, so notification DMs are
// sent after the interaction that caused them has rendered. It uses a pool
// separate from block actions because those publish while holding a slot.
type NotificationWorker struct {
	inner  events.Dispatcher
	runner *InteractionRunner
}

// StartNotificationWorker registers the notification handlers on inner and
// returns the dispatcher ticket services should publish to. base bounds the
// worker's lifetime.
func StartNotificationWorker(base context.Context, inner events.Dispatcher, notifier *service.NotificationService, size int, timeout time.Duration, logger *zap.Logger) *NotificationWorker {
	if notifier != nil {
		notifier.RegisterHandlers()
	}
	return &NotificationWorker{
		inner:  inner,
		runner: NewInteractionRunner(base, size, timeout, logger),
	}
}

// Publish schedules delivery of event and returns without waiting for it.
func (w *NotificationWorker) Publish(_ context.Context, event events.Event) error {
	if !w.runner.Go("notify_"+string(event.Type), func(ctx context.Context) error {
		return w.inner.Publish(ctx, event)
	}) {
		return ErrWorkerStopped
	}
	return nil
}

// Subscribe registers handler on the inner dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.inner.Subscribe(eventType, handler)
}

// Wait blocks until every scheduled delivery has returned.
func (w *NotificationWorker) Wait() {
	w.runner.Wait()
}
