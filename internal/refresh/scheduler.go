package refresh

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner одна полная попытка обновления с повторами
type Runner interface {
	RunWithRetry(ctx context.Context) (Result, error)
}

// StatusReporter получает итог каждого запланированного прогона
type StatusReporter interface {
	ReportRefresh(err error)
}

// Scheduler запускает обновление на границах интервала в UTC
// (для часа это начало каждого часа). Прогоны не пересекаются:
// следующий срок считается после завершения текущего.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	reporter   StatusReporter
	logger     *logrus.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewScheduler создает планировщик. reporter может быть nil.
func NewScheduler(runner Runner, interval time.Duration, runOnStart bool, reporter StatusReporter, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		reporter:   reporter,
		logger:     logger,
		now:        time.Now,
		after:      time.After,
		doneCh:     make(chan struct{}),
	}
}

// NextTick возвращает ближайшую границу интервала строго после now
func NextTick(now time.Time, interval time.Duration) time.Time {
	return now.UTC().Truncate(interval).Add(interval)
}

// Start запускает цикл в отдельной горутине
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop останавливает цикл и ждет завершения текущего прогона
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.doneCh
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	if s.runOnStart {
		s.runOnce(ctx)
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("Rates refresh scheduler stopped")
			return
		}

		next := NextTick(s.now(), s.interval)
		wait := next.Sub(s.now())
		s.logger.Infof("Next rates refresh at %s", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			s.logger.Info("Rates refresh scheduler stopped")
			return
		case <-s.after(wait):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.runner.RunWithRetry(ctx)
	if s.reporter != nil && ctx.Err() == nil {
		s.reporter.ReportRefresh(err)
	}
}
