package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/infrastructure/config"
)

// PassiveIncomeRunner is the subset of the passive income service the
// scheduler drives. Both operations are idempotent per calendar month, so a
// tick that fires twice in the same period is harmless.
type PassiveIncomeRunner interface {
	RefillMonthlyPassive(ctx context.Context) (int, error)
	DistributeMonthlyPassive(ctx context.Context) (int, error)
}

// MonthlyScheduler triggers the passive income refill and distribution once
// per calendar month. It polls instead of sleeping until the exact instant:
// a restart mid-month still runs the current period because the service's
// ledger markers, not this process, are the source of truth for "already ran".
type MonthlyScheduler struct {
	config config.SchedulerConfig
	runner PassiveIncomeRunner
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastPeriod string
	lastRunAt  *time.Time
}

// NewMonthlyScheduler creates a new MonthlyScheduler
func NewMonthlyScheduler(cfg config.SchedulerConfig, runner PassiveIncomeRunner, logger *zap.Logger) *MonthlyScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	return &MonthlyScheduler{
		config: cfg,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// Start starts the scheduler loop. A disabled scheduler starts as a no-op so
// callers do not need to special-case configuration.
func (s *MonthlyScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info("Monthly passive income scheduler disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Monthly passive income scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Int("run_hour", s.config.RunHour),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *MonthlyScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Monthly passive income scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Monthly passive income scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *MonthlyScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Check immediately on startup so a restart after the run hour does not
	// wait a full interval before catching up.
	if s.shouldRun(s.now()) {
		s.runMonthlyJobs(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.shouldRun(s.now()) {
				s.runMonthlyJobs(ctx)
			}
		}
	}
}

// shouldRun reports whether the monthly jobs are due: the run hour has been
// reached and this process has not triggered the current period yet
func (s *MonthlyScheduler) shouldRun(now time.Time) bool {
	if now.UTC().Hour() < s.config.RunHour {
		return false
	}
	period := referral.PeriodOf(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPeriod != period
}

func (s *MonthlyScheduler) runMonthlyJobs(ctx context.Context) {
	now := s.now()
	period := referral.PeriodOf(now)

	s.logger.Info("Running monthly passive income jobs", zap.String("period", period))

	refilled, err := s.runner.RefillMonthlyPassive(ctx)
	if err != nil {
		s.logger.Error("Monthly passive refill failed",
			zap.String("period", period),
			zap.Error(err),
		)
		// Leave lastPeriod untouched so the next tick retries.
		return
	}

	paid, err := s.runner.DistributeMonthlyPassive(ctx)
	if err != nil {
		s.logger.Error("Monthly passive distribution failed",
			zap.String("period", period),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	s.lastPeriod = period
	s.lastRunAt = &now
	s.mu.Unlock()

	s.logger.Info("Monthly passive income jobs completed",
		zap.String("period", period),
		zap.Int("users_refilled", refilled),
		zap.Int("users_paid", paid),
	)
}

// TriggerManualRun runs the monthly jobs immediately, regardless of run hour.
// Used by the admin endpoint; safe to call repeatedly because the underlying
// service operations are idempotent per period.
func (s *MonthlyScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runMonthlyJobs(context.WithoutCancel(ctx))
	return nil
}

// GetStatus returns the current scheduler status
func (s *MonthlyScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":        s.config.Enabled,
		"is_running":     s.isRunning,
		"run_hour":       s.config.RunHour,
		"check_interval": s.config.CheckInterval.String(),
		"last_period":    s.lastPeriod,
		"last_run_at":    s.lastRunAt,
	}
}
