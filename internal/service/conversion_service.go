package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/metrics"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
)

// ExportFormatCSV единственный поддерживаемый формат выгрузки истории
const ExportFormatCSV = "csv"

var csvHeader = []string{"Currency From", "Currency To", "Rate", "Amount", "Converted amount", "Exchange Time"}

// PairRateLookup источник курса пары для конвертации
type PairRateLookup interface {
	LookupPairRate(ctx context.Context, base, target string) (float64, error)
}

// ConversionNotifier получает каждую записанную конвертацию.
// Реализация сама решает, достаточно ли сумма велика для уведомления.
type ConversionNotifier interface {
	NotifyConversion(ctx context.Context, record *storages.ConversionRecord) error
}

// ConversionService выполняет конвертации и отдает историю пользователя
type ConversionService struct {
	rates    PairRateLookup
	history  storages.HistoryStorage
	notifier ConversionNotifier
	now      func() time.Time
	logger   *logrus.Logger
}

// NewConversionService создает сервис конвертаций. notifier может быть nil.
func NewConversionService(
	rates PairRateLookup,
	history storages.HistoryStorage,
	notifier ConversionNotifier,
	logger *logrus.Logger,
) *ConversionService {
	return &ConversionService{
		rates:    rates,
		history:  history,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// RecordAndConvert считает amount по текущему курсу и сохраняет запись в историю
func (s *ConversionService) RecordAndConvert(ctx context.Context, userID int64, base, target string, amount float64) (*storages.ConversionRecord, error) {
	if err := pkg.ValidateAmount(amount); err != nil {
		return nil, ErrInvalidAmount
	}

	base, target = pkg.NormalizeCurrency(base), pkg.NormalizeCurrency(target)

	rate, err := s.rates.LookupPairRate(ctx, base, target)
	if err != nil {
		return nil, err
	}

	record := &storages.ConversionRecord{
		UserID:          userID,
		BaseCurrency:    base,
		TargetCurrency:  target,
		Amount:          amount,
		ConvertedAmount: rate * amount,
		Rate:            rate,
		ExchangeTime:    s.now().UTC(),
	}

	if err := s.history.CreateConversion(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record conversion: %w", err)
	}
	metrics.ConversionsTotal.Inc()

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"pair":    base + "->" + target,
		"amount":  amount,
		"rate":    rate,
	}).Info("Conversion recorded")

	if s.notifier != nil {
		if err := s.notifier.NotifyConversion(ctx, record); err != nil {
			s.logger.Warnf("Failed to send conversion notification: %v", err)
		}
	}

	return record, nil
}

// ListHistory возвращает историю конвертаций пользователя, новые первыми
func (s *ConversionService) ListHistory(ctx context.Context, userID int64) ([]storages.ConversionRecord, error) {
	records, err := s.history.ListConversionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// ExportHistory пишет историю пользователя в w в формате format
func (s *ConversionService) ExportHistory(ctx context.Context, userID int64, format string, w io.Writer) error {
	if !strings.EqualFold(format, ExportFormatCSV) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	records, err := s.ListHistory(ctx, userID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.BaseCurrency,
			r.TargetCurrency,
			formatFloat(r.Rate),
			formatFloat(r.Amount),
			formatFloat(r.ConvertedAmount),
			pkg.FormatExchangeTime(r.ExchangeTime),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
