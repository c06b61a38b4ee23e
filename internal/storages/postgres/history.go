package postgres

import (
	"context"
	"fmt"

	"gw-currency-rates/internal/storages"
)

// CreateConversion сохраняет запись истории обмена
func (s *PostgresStorage) CreateConversion(ctx context.Context, record *storages.ConversionRecord) error {
	query := `
		INSERT INTO conversion_history
			(user_id, base_currency, target_currency, amount, converted_amount, rate, exchange_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		record.UserID,
		record.BaseCurrency,
		record.TargetCurrency,
		record.Amount,
		record.ConvertedAmount,
		record.Rate,
		record.ExchangeTime,
	).Scan(&record.ID)

	if pqCode(err) == foreignKeyViolation {
		return fmt.Errorf("user %d: %w", record.UserID, storages.ErrNotFound)
	}
	if err != nil {
		s.logger.Errorf("Failed to create conversion record: %v", err)
		return fmt.Errorf("%w: failed to create conversion record: %v", storages.ErrPersistence, err)
	}

	return nil
}

// ListConversionsByUser возвращает историю пользователя, новые записи первыми
func (s *PostgresStorage) ListConversionsByUser(ctx context.Context, userID int64) ([]storages.ConversionRecord, error) {
	query := `
		SELECT id, user_id, base_currency, target_currency, amount, converted_amount, rate, exchange_time
		FROM conversion_history
		WHERE user_id = $1
		ORDER BY exchange_time DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		s.logger.Errorf("Failed to query conversion history: %v", err)
		return nil, fmt.Errorf("%w: failed to query conversion history: %v", storages.ErrPersistence, err)
	}
	defer rows.Close()

	records := make([]storages.ConversionRecord, 0)
	for rows.Next() {
		var r storages.ConversionRecord
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.BaseCurrency,
			&r.TargetCurrency,
			&r.Amount,
			&r.ConvertedAmount,
			&r.Rate,
			&r.ExchangeTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversion record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversion history: %w", err)
	}

	return records, nil
}
