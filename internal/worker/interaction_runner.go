package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one interaction handled after the HTTP acknowledgement.
type Task func(ctx context.Context) error

// InteractionRunner runs block-action interactions off the request goroutine.
// At most size tasks run at once; each gets its own deadline.
type InteractionRunner struct {
	slots   chan struct{}
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
	base    context.Context
}

// NewInteractionRunner creates a runner. base is the parent of every task
// context and is canceled on shutdown.
func NewInteractionRunner(base context.Context, size int, timeout time.Duration, logger *zap.Logger) *InteractionRunner {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionRunner{
		slots:   make(chan struct{}, size),
		timeout: timeout,
		logger:  logger,
		base:    base,
	}
}

// Go schedules task. It blocks while every slot is busy and returns false if
// the runner's context ends first.
func (r *InteractionRunner) Go(kind string, task Task) bool {
	select {
	case r.slots <- struct{}{}:
	case <-r.base.Done():
		r.logger.Warn("interaction dropped during shutdown", zap.String("kind", kind))
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()
		if err := r.run(kind, task); err != nil {
			r.logger.Warn("interaction failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
	return true
}

func (r *InteractionRunner) run(kind string, task Task) (err error) {
	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("interaction panicked",
				zap.String("kind", kind),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic in %s: %v", kind, rec)
		}
	}()
	return task(ctx)
}

// Wait blocks until every scheduled task has returned.
func (r *InteractionRunner) Wait() {
	r.wg.Wait()
}
