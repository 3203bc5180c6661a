package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

// HousekeepingService periodically deletes expired refresh records from
// stores without native expiry and retires signing keys past their grace
// period.
type HousekeepingService struct {
	RefreshTokens store.RefreshTokens
	Keys          *KeyRotationService // optional
	Clock         clockx.Clock
	Logger        *slog.Logger
	Interval      time.Duration

	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHousekeepingService creates a housekeeping service. Intervals of zero or
// less default to one hour.
func NewHousekeepingService(
	refresh store.RefreshTokens,
	keys *KeyRotationService,
	clock clockx.Clock,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		RefreshTokens: refresh,
		Keys:          keys,
		Clock:         clock,
		Logger:        logger,
		Interval:      interval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop.
func (s *HousekeepingService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished. Stopping a service
// that never started is a no-op.
func (s *HousekeepingService) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure is logged and
// the next step still runs.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	n, err := s.RefreshTokens.DeleteExpired(ctx, s.Clock.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted expired refresh tokens", "count", n)
	}

	if s.Keys == nil {
		return
	}

	retired, err := s.Keys.RetireDue()
	if err != nil {
		s.Logger.Error("failed to retire signing keys", "error", err)
	}
	if len(retired) > 0 {
		s.Logger.Info("retired signing keys", "kids", retired)
	}
}
