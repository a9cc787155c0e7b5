package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SweeperConfig controls the pending-row sweep.
type SweeperConfig struct {
	// Interval between sweeps (default: 1m)
	Interval time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: time.Minute}
}

// ErrSweeperRunning is returned by Start on a sweeper already started.
var ErrSweeperRunning = errors.New("sweeper is already running")

// Sweeper runs SyncWorker.ProcessPendingExpenses on a fixed interval,
// starting with an immediate pass.
type Sweeper struct {
	worker *SyncWorker
	config SweeperConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(w *SyncWorker, config SweeperConfig, logger *slog.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{worker: w, config: config, logger: logger.With("component", "sweeper")}
}

// Start launches the loop in the background.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSweeperRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(ctx, s.stopCh, s.doneCh)

	s.logger.InfoContext(ctx, "Sweeper started", "interval", s.config.Interval)
	return nil
}

// Run blocks until ctx is done. It is the errgroup-friendly form of Start.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// Stop signals the loop and waits for the current pass to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.worker.ProcessPendingExpenses(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "Pending sweep failed", "error", err)
	}
}
