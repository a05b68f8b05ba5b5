package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/backupflow/backend/internal/application/billing"
)

// OverageSweepScheduler periodically processes every unbilled overage so
// records missed by manual runs still reach HubSpot.
type OverageSweepScheduler struct {
	reconciler *billing.ReconcilerService
	logger     *zap.Logger
	config     OverageSweepSchedulerConfig
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	isRunning  bool
}

// OverageSweepSchedulerConfig holds configuration for the sweep scheduler
type OverageSweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// SweepInterval is how often the sweep runs
	SweepInterval time.Duration

	// SweepTimeout bounds a single sweep run
	SweepTimeout time.Duration
}

// DefaultOverageSweepSchedulerConfig returns default configuration
func DefaultOverageSweepSchedulerConfig() OverageSweepSchedulerConfig {
	return OverageSweepSchedulerConfig{
		Enabled:       true,
		SweepInterval: time.Hour,
		SweepTimeout:  10 * time.Minute,
	}
}

// NewOverageSweepScheduler creates a new sweep scheduler
func NewOverageSweepScheduler(
	reconciler *billing.ReconcilerService,
	logger *zap.Logger,
	config OverageSweepSchedulerConfig,
) *OverageSweepScheduler {
	return &OverageSweepScheduler{
		reconciler: reconciler,
		logger:     logger,
		config:     config,
	}
}

// Start starts the sweep loop
func (s *OverageSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Overage sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runSweepLoop(ctx)

	s.logger.Info("Overage sweep scheduler started",
		zap.Duration("interval", s.config.SweepInterval),
		zap.Duration("timeout", s.config.SweepTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *OverageSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overage sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overage sweep scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *OverageSweepScheduler) runSweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx, "scheduled")
		}
	}
}

func (s *OverageSweepScheduler) executeSweep(ctx context.Context, trigger string) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	startTime := time.Now()
	summary, err := s.reconciler.ProcessAllUnbilled(sweepCtx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Overage sweep failed",
			zap.String("trigger", trigger),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Overage sweep completed",
		zap.String("trigger", trigger),
		zap.Int("total_processed", summary.TotalProcessed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", duration),
	)
}

// TriggerImmediateSweep starts an out-of-band sweep without waiting for
// the next tick
func (s *OverageSweepScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate overage sweep")

	go func() {
		defer s.wg.Done()
		s.executeSweep(ctx, "manual")
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *OverageSweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
