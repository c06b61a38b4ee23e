package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-currency-rates/internal/logger"
)

func TestNextTick(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		interval time.Duration
		want     time.Time
	}{
		{
			name:     "middle of hour",
			now:      time.Date(2024, 1, 1, 10, 17, 42, 0, time.UTC),
			interval: time.Hour,
			want:     time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			name:     "exactly on the hour",
			now:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			interval: time.Hour,
			want:     time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of day",
			now:      time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC),
			interval: time.Hour,
			want:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "non utc input",
			now:      time.Date(2024, 1, 1, 13, 30, 0, 0, time.FixedZone("MSK", 3*3600)),
			interval: time.Hour,
			want:     time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			name:     "fifteen minutes",
			now:      time.Date(2024, 1, 1, 10, 17, 0, 0, time.UTC),
			interval: 15 * time.Minute,
			want:     time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextTick(tt.now, tt.interval)))
		})
	}
}

type countingRunner struct {
	mu    sync.Mutex
	calls int
	errs  []error
	stop  int
	onHit func()
}

func (r *countingRunner) RunWithRetry(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var err error
	if r.calls <= len(r.errs) {
		err = r.errs[r.calls-1]
	}
	if r.calls == r.stop && r.onHit != nil {
		r.onHit()
	}
	return Result{}, err
}

type recordingReporter struct {
	mu      sync.Mutex
	results []error
}

func (r *recordingReporter) ReportRefresh(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, err)
}

// waitLoop ждет, пока цикл завершится сам после отмены контекста раннером
func waitLoop(t *testing.T, s *Scheduler) {
	t.Helper()
	select {
	case <-s.doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler loop did not finish")
	}
}

func TestSchedulerRunsEachTick(t *testing.T) {
	reporter := &recordingReporter{}
	runner := &countingRunner{errs: []error{errors.New("exhausted"), nil}, stop: 3}
	s := NewScheduler(runner, time.Hour, false, reporter, logger.Discard())

	fixed := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	var waits []time.Duration
	s.now = func() time.Time { return fixed }
	s.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- fixed.Add(d)
		return ch
	}

	ctx, cancel := context.WithCancel(context.Background())
	runner.onHit = cancel

	s.Start(ctx)
	waitLoop(t, s)
	s.Stop()

	assert.Equal(t, 3, runner.calls)
	require.Len(t, waits, 3)
	for _, w := range waits {
		assert.Equal(t, 45*time.Minute, w)
	}
	// третий прогон прерван отменой контекста и не попадает в отчет
	assert.Len(t, reporter.results, 2)
	assert.Error(t, reporter.results[0])
	assert.NoError(t, reporter.results[1])
}

func TestSchedulerRunOnStart(t *testing.T) {
	runner := &countingRunner{stop: 1}
	s := NewScheduler(runner, time.Hour, true, nil, logger.Discard())
	s.after = func(d time.Duration) <-chan time.Time { return make(chan time.Time) }

	ctx, cancel := context.WithCancel(context.Background())
	runner.onHit = cancel

	s.Start(ctx)
	waitLoop(t, s)
	s.Stop()

	assert.Equal(t, 1, runner.calls)
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewScheduler(&countingRunner{}, 0, false, nil, logger.Discard())
	assert.Equal(t, time.Hour, s.interval)
	s.Stop()
}
