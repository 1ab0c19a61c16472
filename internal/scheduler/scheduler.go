package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segyhp/coop-ledger/internal/domain"
	"go.uber.org/zap"
)

// LateFineRunner is the job the scheduler triggers.
type LateFineRunner interface {
	RunOnce(ctx context.Context) (*domain.LateFineScanResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a seconds-resolution cron evaluated in loc. A job that panics
// is recovered and logged; overlapping runs of one job are skipped.
func New(loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	cronLogger := zapCronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		timeout: timeout,
		logger:  logger,
	}
}

// RegisterLateFineScan schedules runner on expr, e.g. "0 0 1 * * *".
func (s *Scheduler) RegisterLateFineScan(expr string, runner LateFineRunner) (cron.EntryID, error) {
	return s.cron.AddFunc(expr, func() {
		s.runLateFineScan(runner)
	})
}

func (s *Scheduler) runLateFineScan(runner LateFineRunner) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("running late fine scan")
	result, err := runner.RunOnce(ctx)
	if err != nil {
		s.logger.Error("late fine scan reported errors", zap.Error(err))
	}
	if result != nil && !result.Skipped {
		s.logger.Info("late fine scan completed",
			zap.Int("scanned", result.Scanned),
			zap.Int("fines_created", len(result.FinesCreated)),
		)
	}
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

type zapCronLogger struct {
	log *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
