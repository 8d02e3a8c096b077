package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tonic56/cryptofolio/internal/models"
)

const tickInterval = time.Second

type Store interface {
	State() models.State
	FetchAllPrices(ctx context.Context) error
}

// Scheduler drives periodic price refreshes for a store. At most one refresh runs
// at a time; triggers arriving while one is running are dropped.
type Scheduler struct {
	store Store
	log   *slog.Logger

	inFlight atomic.Bool
	mounted  atomic.Bool
	wg       sync.WaitGroup

	mu        sync.Mutex
	countdown int
	interval  models.RefreshInterval
}

func New(store Store, log *slog.Logger) *Scheduler {
	interval := store.State().RefreshInterval
	return &Scheduler{
		store:     store,
		log:       log,
		countdown: int(interval),
		interval:  interval,
	}
}

// Run performs the initial refresh and then ticks every second until ctx is done.
// It returns after the refresh in flight, if any, has finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.Mount()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Mount triggers the initial refresh. Only the first call has an effect.
func (s *Scheduler) Mount() bool {
	if !s.mounted.CompareAndSwap(false, true) {
		return false
	}
	return s.trigger("initial")
}

func (s *Scheduler) Tick() {
	state := s.store.State()

	s.mu.Lock()
	if state.RefreshInterval != s.interval {
		s.interval = state.RefreshInterval
		s.countdown = int(s.interval)
	}
	if !state.AutoRefresh {
		s.countdown = int(s.interval)
		s.mu.Unlock()
		return
	}

	s.countdown--
	due := s.countdown <= 0
	if due {
		s.countdown = int(s.interval)
	}
	s.mu.Unlock()

	if due {
		s.trigger("timer")
	}
}

// Manual refreshes right away and restarts the countdown. It reports whether a
// refresh was started.
func (s *Scheduler) Manual() bool {
	s.reseed()
	return s.trigger("manual")
}

// Foreground is called when the view visibility changes. Becoming visible with
// auto refresh enabled refreshes right away and restarts the countdown.
func (s *Scheduler) Foreground(visible bool) bool {
	if !visible || !s.mounted.Load() {
		return false
	}
	if !s.store.State().AutoRefresh {
		return false
	}

	s.reseed()
	return s.trigger("foreground")
}

// Countdown returns the seconds left until the next timer refresh.
func (s *Scheduler) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countdown
}

func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

// Wait blocks until the refresh in flight, if any, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) reseed() {
	interval := s.store.State().RefreshInterval

	s.mu.Lock()
	s.interval = interval
	s.countdown = int(interval)
	s.mu.Unlock()
}

func (s *Scheduler) trigger(reason string) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug("refresh already in flight, dropping", "reason", reason)
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		if err := s.store.FetchAllPrices(context.Background()); err != nil {
			s.log.Debug("scheduled refresh failed", "reason", reason, "error", err)
		}
	}()

	return true
}
