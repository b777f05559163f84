package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReportGenerator builds the daily inventory report.
type ReportGenerator interface {
	GenerateDailyReport(ctx context.Context, now time.Time) (string, error)
}

// Notifier delivers a rendered report. It may be nil.
type Notifier interface {
	SendText(ctx context.Context, text string) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	reports  ReportGenerator
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler running spec (standard 5-field cron) in loc.
func NewScheduler(spec string, loc *time.Location, reports ReportGenerator, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		reports:  reports,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the daily snapshot job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("spec", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.runDailySnapshot); err != nil {
		return fmt.Errorf("schedule daily snapshot %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("daily snapshot failed", zap.Error(err))
	}
}

// RunOnce generates the report and sends it when a notifier is configured.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.logger.Info("generating daily snapshot")

	report, err := s.reports.GenerateDailyReport(ctx, s.now())
	if err != nil {
		return fmt.Errorf("generate daily report: %w", err)
	}

	if s.notifier == nil {
		s.logger.Info("daily snapshot stored, no notifier configured")
		return nil
	}

	if err := s.notifier.SendText(ctx, report); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}
	s.logger.Info("daily report sent successfully")
	return nil
}
