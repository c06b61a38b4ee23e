package refresh

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/metrics"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
)

// TableProvider источник полной таблицы курсов
type TableProvider interface {
	FetchFullTable(ctx context.Context, base string) (map[string]float64, error)
}

// Config настройки обновления
type Config struct {
	BaseCurrency   string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Result итог одного успешного прогона
type Result struct {
	Inserted int
	Updated  int
	Attempts int
}

// Job сверяет сохраненные курсы для одной базовой валюты с таблицей провайдера.
// С кешем курсов не работает.
type Job struct {
	provider   TableProvider
	storage    storages.RateStorage
	base       string
	newBackoff func() retry.Backoff
	now        func() time.Time
	logger     *logrus.Logger
}

// NewJob создает задачу обновления курсов
func NewJob(provider TableProvider, storage storages.RateStorage, cfg Config, logger *logrus.Logger) *Job {
	maxRetries := uint64(0)
	if cfg.MaxRetries > 0 {
		maxRetries = uint64(cfg.MaxRetries)
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &Job{
		provider: provider,
		storage:  storage,
		base:     pkg.NormalizeCurrency(cfg.BaseCurrency),
		newBackoff: func() retry.Backoff {
			b := retry.NewExponential(baseDelay)
			if cfg.RetryMaxDelay > 0 {
				b = retry.WithCappedDuration(cfg.RetryMaxDelay, b)
			}
			return retry.WithMaxRetries(maxRetries, b)
		},
		now:    time.Now,
		logger: logger,
	}
}

// RunWithRetry выполняет Run, повторяя при любой ошибке с экспоненциальной
// задержкой. После исчерпания повторов возвращает последнюю ошибку.
func (j *Job) RunWithRetry(ctx context.Context) (Result, error) {
	var (
		result   Result
		attempts int
	)

	err := retry.Do(ctx, j.newBackoff(), func(ctx context.Context) error {
		attempts++
		metrics.RefreshAttempts.Inc()

		r, err := j.Run(ctx)
		if err != nil {
			j.logger.WithFields(logrus.Fields{
				"base":    j.base,
				"attempt": attempts,
			}).Warnf("Rates refresh attempt failed: %v", err)
			return retry.RetryableError(err)
		}
		result = r
		return nil
	})
	result.Attempts = attempts

	if err != nil {
		metrics.RefreshRuns.WithLabelValues("failure").Inc()
		j.logger.Errorf("Rates refresh for %s abandoned after %d attempts: %v", j.base, attempts, err)
		return result, fmt.Errorf("rates refresh failed after %d attempts: %w", attempts, err)
	}

	metrics.RefreshRuns.WithLabelValues("success").Inc()
	metrics.RefreshLastSuccess.SetToCurrentTime()
	j.logger.Infof("Rates refresh for %s done: inserted=%d updated=%d attempts=%d",
		j.base, result.Inserted, result.Updated, attempts)
	return result, nil
}

// Run выполняет одну попытку обновления в одной транзакции
func (j *Job) Run(ctx context.Context) (Result, error) {
	var result Result

	rates, err := j.provider.FetchFullTable(ctx, j.base)
	if err != nil {
		return result, fmt.Errorf("failed to fetch rates table: %w", err)
	}

	tx, err := j.storage.BeginRatesTx(ctx)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	rows, err := tx.GetRatesByBase(ctx, j.base)
	if err != nil {
		return result, err
	}

	existing := make(map[string]*storages.CurrencyRate, len(rows))
	for i := range rows {
		existing[rows[i].TargetCurrency] = &rows[i]
	}

	targets := make([]string, 0, len(rates))
	for target := range rates {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	now := j.now().UTC()
	for _, target := range targets {
		if target == j.base {
			continue
		}

		inserted, err := j.upsertRate(ctx, tx, existing, target, rates[target], now)
		if err != nil {
			return result, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}

	metrics.RefreshRows.WithLabelValues("inserted").Add(float64(result.Inserted))
	metrics.RefreshRows.WithLabelValues("updated").Add(float64(result.Updated))
	return result, nil
}

// upsertRate обновляет строку на месте, если она уже есть, иначе вставляет новую
func (j *Job) upsertRate(
	ctx context.Context,
	tx storages.RatesTx,
	existing map[string]*storages.CurrencyRate,
	target string,
	rate float64,
	now time.Time,
) (bool, error) {
	if row, ok := existing[target]; ok {
		row.Rate = rate
		row.UpdatedAt = now
		if err := tx.UpdateRate(ctx, row); err != nil {
			return false, err
		}
		return false, nil
	}

	row := &storages.CurrencyRate{
		BaseCurrency:   j.base,
		TargetCurrency: target,
		Rate:           rate,
		UpdatedAt:      now,
	}
	if err := tx.CreateRate(ctx, row); err != nil {
		return true, err
	}
	existing[target] = row
	return true, nil
}
