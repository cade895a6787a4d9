package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerBoundsConcurrency(t *testing.T) {
	r := NewInteractionRunner(context.Background(), 2, time.Second, nil)
	var running, peak int32
	for i := 0; i < 8; i++ {
		r.Go("page_change", func(context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
	}
	r.Wait()
	if peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRunnerAppliesTimeout(t *testing.T) {
	r := NewInteractionRunner(context.Background(), 1, 10*time.Millisecond, nil)
	var got error
	r.Go("export", func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	})
	r.Wait()
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("ctx err = %v", got)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	r := NewInteractionRunner(context.Background(), 1, time.Second, nil)
	var after int32
	r.Go("transition", func(context.Context) error { panic("boom") })
	r.Go("transition", func(context.Context) error { atomic.StoreInt32(&after, 1); return nil })
	r.Wait()
	if atomic.LoadInt32(&after) != 1 {
		t.Fatalf("runner stopped after a panic")
	}
}

func TestRunnerRejectsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewInteractionRunner(ctx, 1, time.Second, nil)
	release := make(chan struct{})
	r.Go("busy", func(context.Context) error { <-release; return nil })
	cancel()
	if r.Go("late", func(context.Context) error { return nil }) {
		t.Fatalf("task accepted after shutdown while slots were full")
	}
	close(release)
	r.Wait()
}
