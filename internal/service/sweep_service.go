package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/persistence"
	"github.com/spec-kit/ticketbot/internal/query"
	"github.com/spec-kit/ticketbot/internal/repository"
	"github.com/spec-kit/ticketbot/internal/view"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

const (
	sweepLockKey  = "sweep"
	sweepRowLimit = 500
)

// Locker is a lease that keeps concurrent sweeps from double-posting.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*persistence.Lock, bool, error)
	Release(ctx context.Context, lock *persistence.Lock) error
}

// SweepService reports stale and overdue tickets. It never changes a ticket.
type SweepService struct {
	store        repository.Store
	chat         chat.Client
	renderer     *view.Renderer
	locker       Locker
	channel      string
	staleAfter   time.Duration
	overdueAfter time.Duration
	lockTTL      time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// SweepDependencies bundles collaborators for the sweep.
type SweepDependencies struct {
	Store        repository.Store
	Chat         chat.Client
	Renderer     *view.Renderer
	Locker       Locker
	Channel      string
	StaleAfter   time.Duration
	OverdueAfter time.Duration
	LockTTL      time.Duration
	Logger       *zap.Logger
	Clock        func() time.Time
}

// SweepResult counts what one run reported.
type SweepResult struct {
	Skipped   bool
	Stale     int
	Overdue   int
	Reminders int
}

// NewSweepService constructs the service.
func NewSweepService(deps SweepDependencies) *SweepService {
	s := &SweepService{
		store:        deps.Store,
		chat:         deps.Chat,
		renderer:     deps.Renderer,
		locker:       deps.Locker,
		channel:      deps.Channel,
		staleAfter:   deps.StaleAfter,
		overdueAfter: deps.OverdueAfter,
		lockTTL:      deps.LockTTL,
		logger:       deps.Logger,
		now:          deps.Clock,
	}
	if s.staleAfter <= 0 {
		s.staleAfter = 72 * time.Hour
	}
	if s.overdueAfter <= 0 {
		s.overdueAfter = 7 * 24 * time.Hour
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 5 * time.Minute
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run posts the stale digest to the responders channel and reminds each
// assignee of their overdue tickets. A run that finds the lock held is
// skipped.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	release, ok, err := s.acquire(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	if !ok {
		s.logger.Info("sweep already running elsewhere; skipping")
		return SweepResult{Skipped: true}, nil
	}
	defer release()

	now := s.now()
	var result SweepResult

	stale, err := s.store.ListTickets(ctx, query.Stale(now, s.staleAfter), sweepRowLimit)
	if err != nil {
		return result, apperrors.NewUpstream("the ticket database", err)
	}
	result.Stale = len(stale)
	var errs []error
	if len(stale) > 0 && s.channel != "" {
		if _, err := s.chat.PostMessage(ctx, s.channel, s.renderer.RenderDigest(stale, s.staleAfter)); err != nil {
			errs = append(errs, err)
		}
	}

	overdue, err := s.store.ListTickets(ctx, query.Overdue(now, s.overdueAfter), sweepRowLimit)
	if err != nil {
		return result, errors.Join(append(errs, apperrors.NewUpstream("the ticket database", err))...)
	}
	result.Overdue = len(overdue)
	for _, t := range overdue {
		if !t.IsAssigned() {
			continue
		}
		if err := s.chat.DirectMessage(ctx, t.AssignedTo, s.renderer.OverdueReminder(t)); err != nil {
			s.logger.Warn("overdue reminder failed", zap.Int64("ticket_id", t.ID), zap.String("assignee", t.AssignedTo), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		result.Reminders++
	}

	s.logger.Info("sweep finished",
		zap.Int("stale", result.Stale),
		zap.Int("overdue", result.Overdue),
		zap.Int("reminders", result.Reminders))
	return result, errors.Join(errs...)
}

func (s *SweepService) acquire(ctx context.Context) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	lock, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
	switch {
	case errors.Is(err, persistence.ErrRedisDisabled):
		s.logger.Warn("sweep running without a lock", zap.Error(err))
		return func() {}, true, nil
	case err != nil:
		return nil, false, apperrors.NewUpstream("the sweep lock", err)
	case !ok:
		return nil, false, nil
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lock); err != nil {
			s.logger.Warn("sweep lock release failed", zap.Error(err))
		}
	}, true, nil
}

