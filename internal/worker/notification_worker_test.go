package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/ticketbot/internal/events"
)

func TestNotificationWorkerDeliversOffThePublisher(t *testing.T) {
	inner := events.NewInMemoryDispatcher()
	w := StartNotificationWorker(context.Background(), inner, nil, 2, time.Second, nil)

	release := make(chan struct{})
	var delivered int32
	w.Subscribe(events.EventTicketAssigned, func(ctx context.Context, e events.Event) error {
		<-release
		if e.TicketID != 7 {
			t.Errorf("ticket id = %d", e.TicketID)
		}
		atomic.AddInt32(&delivered, 1)
		return errors.New("dm failed")
	})

	if err := w.Publish(context.Background(), events.Event{Type: events.EventTicketAssigned, TicketID: 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if atomic.LoadInt32(&delivered) != 0 {
		t.Fatalf("delivered before publish returned")
	}
	close(release)
	w.Wait()
	if got := atomic.LoadInt32(&delivered); got != 1 {
		t.Fatalf("delivered = %d", got)
	}
}

func TestNotificationWorkerRejectsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := StartNotificationWorker(ctx, events.NewInMemoryDispatcher(), nil, 1, time.Second, nil)
	cancel()
	// Occupy the only slot so scheduling has to wait and sees the canceled context.
	w.runner.slots <- struct{}{}

	if err := w.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}); !errors.Is(err, ErrWorkerStopped) {
		t.Fatalf("expected ErrWorkerStopped, got %v", err)
	}
}
