package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/storages"
)

// ratesTx реализует storages.RatesTx поверх *sql.Tx
type ratesTx struct {
	tx     *sql.Tx
	logger *logrus.Logger
}

// BeginRatesTx открывает транзакцию для обновления сохраненных курсов
func (s *PostgresStorage) BeginRatesTx(ctx context.Context) (storages.RatesTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", storages.ErrPersistence, err)
	}
	return &ratesTx{tx: tx, logger: s.logger}, nil
}

// GetRatesByBase возвращает все сохраненные курсы для base
func (t *ratesTx) GetRatesByBase(ctx context.Context, base string) ([]storages.CurrencyRate, error) {
	query := `
		SELECT id, base_currency, target_currency, rate, updated_at
		FROM currency_rates
		WHERE base_currency = $1
		ORDER BY target_currency
	`

	rows, err := t.tx.QueryContext(ctx, query, base)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query currency rates: %v", storages.ErrPersistence, err)
	}
	defer rows.Close()

	var rates []storages.CurrencyRate
	for rows.Next() {
		var r storages.CurrencyRate
		if err := rows.Scan(&r.ID, &r.BaseCurrency, &r.TargetCurrency, &r.Rate, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan currency rate: %w", err)
		}
		rates = append(rates, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currency rates: %w", err)
	}

	return rates, nil
}

// UpdateRate обновляет курс и updated_at существующей строки
func (t *ratesTx) UpdateRate(ctx context.Context, rate *storages.CurrencyRate) error {
	query := `
		UPDATE currency_rates
		SET rate = $1, updated_at = $2
		WHERE base_currency = $3 AND target_currency = $4
	`

	result, err := t.tx.ExecContext(ctx, query,
		rate.Rate,
		rate.UpdatedAt,
		rate.BaseCurrency,
		rate.TargetCurrency,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update currency rate: %v", storages.ErrPersistence, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("currency rate %s -> %s: %w", rate.BaseCurrency, rate.TargetCurrency, storages.ErrNotFound)
	}

	return nil
}

// CreateRate вставляет новую строку курса
func (t *ratesTx) CreateRate(ctx context.Context, rate *storages.CurrencyRate) error {
	query := `
		INSERT INTO currency_rates (base_currency, target_currency, rate, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := t.tx.QueryRowContext(ctx, query,
		rate.BaseCurrency,
		rate.TargetCurrency,
		rate.Rate,
		rate.UpdatedAt,
	).Scan(&rate.ID)

	if pqCode(err) == uniqueViolation {
		return fmt.Errorf("currency rate %s -> %s: %w", rate.BaseCurrency, rate.TargetCurrency, storages.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to create currency rate: %v", storages.ErrPersistence, err)
	}

	return nil
}

func (t *ratesTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", storages.ErrPersistence, err)
	}
	return nil
}

// Rollback безопасно вызывать после Commit
func (t *ratesTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.logger.Warnf("Failed to rollback rates transaction: %v", err)
		return err
	}
	return nil
}
