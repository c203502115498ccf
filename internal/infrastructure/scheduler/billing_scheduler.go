package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BillingRunner is the application-layer operation the scheduler drives
type BillingRunner interface {
	RunBillingCycle(ctx context.Context, now time.Time) error
}

// BillingSchedulerConfig holds configuration for the billing cycle scheduler
type BillingSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// RunInterval is how often the billing cycle runs
	RunInterval time.Duration

	// RunTimeout is the maximum time a single billing run may take
	RunTimeout time.Duration
}

// DefaultBillingSchedulerConfig returns default configuration
func DefaultBillingSchedulerConfig() BillingSchedulerConfig {
	return BillingSchedulerConfig{
		Enabled:     true,
		RunInterval: time.Hour,
		RunTimeout:  5 * time.Minute,
	}
}

// BillingScheduler periodically renews due subscriptions
type BillingScheduler struct {
	runner    BillingRunner
	logger    *zap.Logger
	config    BillingSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewBillingScheduler creates a new billing cycle scheduler
func NewBillingScheduler(runner BillingRunner, logger *zap.Logger, config BillingSchedulerConfig) *BillingScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingScheduler{
		runner: runner,
		logger: logger,
		config: config,
	}
}

// Start starts the billing scheduler
func (s *BillingScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Billing scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Billing scheduler started",
		zap.Duration("run_interval", s.config.RunInterval))

	return nil
}

// Stop gracefully stops the scheduler and waits for an in-flight run
func (s *BillingScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Billing scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *BillingScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BillingScheduler) runOnce(ctx context.Context) {
	runCtx := ctx
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	now := time.Now().UTC()
	if err := s.runner.RunBillingCycle(runCtx, now); err != nil {
		s.logger.Error("Billing cycle run failed",
			zap.Time("run_at", now),
			zap.Error(err))
		return
	}

	s.logger.Debug("Billing cycle run completed", zap.Time("run_at", now))
}
