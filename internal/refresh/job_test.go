package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/provider"
	"gw-currency-rates/internal/storages"
)

type fakeProvider struct {
	mu       sync.Mutex
	table    map[string]float64
	failures int
	err      error
	calls    int
}

func (p *fakeProvider) FetchFullTable(ctx context.Context, base string) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return p.table, nil
}

// fakeRateStorage хранит строки по (base, target); изменения транзакции
// становятся видны только после Commit
type fakeRateStorage struct {
	rows      map[string]storages.CurrencyRate
	beginErr  error
	commitErr error
	commits   int
	rollbacks int
}

func newFakeRateStorage(rows ...storages.CurrencyRate) *fakeRateStorage {
	s := &fakeRateStorage{rows: make(map[string]storages.CurrencyRate)}
	for _, r := range rows {
		s.rows[r.BaseCurrency+"/"+r.TargetCurrency] = r
	}
	return s
}

func (s *fakeRateStorage) BeginRatesTx(ctx context.Context) (storages.RatesTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	pending := make(map[string]storages.CurrencyRate, len(s.rows))
	for k, v := range s.rows {
		pending[k] = v
	}
	return &fakeTx{store: s, pending: pending}, nil
}

type fakeTx struct {
	store   *fakeRateStorage
	pending map[string]storages.CurrencyRate
	done    bool
}

func (t *fakeTx) GetRatesByBase(ctx context.Context, base string) ([]storages.CurrencyRate, error) {
	var out []storages.CurrencyRate
	for _, r := range t.pending {
		if r.BaseCurrency == base {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *fakeTx) UpdateRate(ctx context.Context, rate *storages.CurrencyRate) error {
	key := rate.BaseCurrency + "/" + rate.TargetCurrency
	if _, ok := t.pending[key]; !ok {
		return storages.ErrNotFound
	}
	t.pending[key] = *rate
	return nil
}

func (t *fakeTx) CreateRate(ctx context.Context, rate *storages.CurrencyRate) error {
	key := rate.BaseCurrency + "/" + rate.TargetCurrency
	if _, ok := t.pending[key]; ok {
		return storages.ErrAlreadyExists
	}
	rate.ID = int64(len(t.pending) + 1)
	t.pending[key] = *rate
	return nil
}

func (t *fakeTx) Commit() error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.rows = t.pending
	t.store.commits++
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.done {
		t.store.rollbacks++
		t.done = true
	}
	return nil
}

var (
	oldTS = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newTS = time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
)

func newTestJob(p TableProvider, s storages.RateStorage) *Job {
	j := NewJob(p, s, Config{BaseCurrency: "USD", MaxRetries: 5, RetryBaseDelay: time.Millisecond}, logger.Discard())
	j.now = func() time.Time { return newTS }
	return j
}

func TestRunInsertsIntoEmptyTable(t *testing.T) {
	p := &fakeProvider{table: map[string]float64{"USD": 1, "EUR": 0.93, "RUB": 79.51, "JPY": 149.2}}
	s := newFakeRateStorage()

	result, err := newTestJob(p, s).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Len(t, s.rows, 3)
	assert.NotContains(t, s.rows, "USD/USD")
	assert.Equal(t, 1, s.commits)
}

func TestRunUpdatesExistingAndInsertsNew(t *testing.T) {
	p := &fakeProvider{table: map[string]float64{"EUR": 0.93, "RUB": 79.51}}
	s := newFakeRateStorage(storages.CurrencyRate{
		ID: 1, BaseCurrency: "USD", TargetCurrency: "EUR", Rate: 0.90, UpdatedAt: oldTS,
	})

	result, err := newTestJob(p, s).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: 1, Updated: 1}, result)

	require.Len(t, s.rows, 2)
	eur := s.rows["USD/EUR"]
	assert.Equal(t, int64(1), eur.ID)
	assert.Equal(t, 0.93, eur.Rate)
	assert.Equal(t, newTS, eur.UpdatedAt)

	rub := s.rows["USD/RUB"]
	assert.Equal(t, 79.51, rub.Rate)
	assert.Equal(t, newTS, rub.UpdatedAt)
}

func TestRunIsIdempotent(t *testing.T) {
	p := &fakeProvider{table: map[string]float64{"EUR": 0.93, "RUB": 79.51}}
	s := newFakeRateStorage()
	j := newTestJob(p, s)

	_, err := j.Run(context.Background())
	require.NoError(t, err)
	result, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Inserted: 0, Updated: 2}, result)
	assert.Len(t, s.rows, 2)
}

func TestRunKeepsOtherBases(t *testing.T) {
	p := &fakeProvider{table: map[string]float64{"RUB": 79.51}}
	s := newFakeRateStorage(storages.CurrencyRate{BaseCurrency: "EUR", TargetCurrency: "RUB", Rate: 89.5, UpdatedAt: oldTS})

	_, err := newTestJob(p, s).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 89.5, s.rows["EUR/RUB"].Rate)
	assert.Equal(t, 79.51, s.rows["USD/RUB"].Rate)
}

func TestRunCommitFailureLeavesRowsUntouched(t *testing.T) {
	p := &fakeProvider{table: map[string]float64{"EUR": 0.93, "RUB": 79.51}}
	s := newFakeRateStorage(storages.CurrencyRate{BaseCurrency: "USD", TargetCurrency: "EUR", Rate: 0.90, UpdatedAt: oldTS})
	s.commitErr = storages.ErrPersistence

	_, err := newTestJob(p, s).Run(context.Background())
	assert.True(t, errors.Is(err, storages.ErrPersistence))

	assert.Len(t, s.rows, 1)
	assert.Equal(t, 0.90, s.rows["USD/EUR"].Rate)
	assert.Equal(t, 1, s.rollbacks)
}

// recordingBackoff запоминает задержки между попытками
func recordingBackoff(delays *[]time.Duration) func() retry.Backoff {
	return func() retry.Backoff {
		b := retry.WithMaxRetries(5, retry.NewExponential(time.Millisecond))
		return retry.BackoffFunc(func() (time.Duration, bool) {
			d, stop := b.Next()
			if !stop {
				*delays = append(*delays, d)
			}
			return d, stop
		})
	}
}

func TestRunWithRetryGivesUpAfterFiveRetries(t *testing.T) {
	netErr := &provider.ProviderError{Kind: provider.NetworkError, Message: "connection refused"}
	p := &fakeProvider{failures: 100, err: netErr}
	s := newFakeRateStorage()
	j := newTestJob(p, s)

	var delays []time.Duration
	j.newBackoff = recordingBackoff(&delays)

	result, err := j.RunWithRetry(context.Background())
	require.Error(t, err)
	assert.Equal(t, provider.NetworkError, provider.KindOf(err))

	assert.Equal(t, 6, p.calls)
	assert.Equal(t, 6, result.Attempts)
	require.Len(t, delays, 5)
	for i := 1; i < len(delays); i++ {
		assert.Greater(t, delays[i], delays[i-1])
	}
	assert.Empty(t, s.rows)
}

func TestRunWithRetryRecoversFromTransientFailure(t *testing.T) {
	p := &fakeProvider{
		table:    map[string]float64{"EUR": 0.93},
		failures: 2,
		err:      &provider.ProviderError{Kind: provider.NetworkError, Message: "timeout"},
	}
	s := newFakeRateStorage()
	j := newTestJob(p, s)

	result, err := j.RunWithRetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, s.rows, 1)
}

func TestRunWithRetryRetriesPersistenceErrors(t *testing.T) {
	p := &fakeProvider{table: map[string]float64{"EUR": 0.93}}
	s := newFakeRateStorage()
	s.beginErr = storages.ErrPersistence
	j := newTestJob(p, s)

	result, err := j.RunWithRetry(context.Background())
	assert.True(t, errors.Is(err, storages.ErrPersistence))
	assert.Equal(t, 6, result.Attempts)
}

func TestRunWithRetryStopsOnCancel(t *testing.T) {
	p := &fakeProvider{failures: 100, err: errors.New("boom")}
	j := NewJob(p, newFakeRateStorage(), Config{BaseCurrency: "USD", MaxRetries: 5, RetryBaseDelay: time.Hour}, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := j.RunWithRetry(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}
