package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/cache"
	"gw-currency-rates/internal/metrics"
	"gw-currency-rates/pkg"
)

// RateProvider источник курсов на промахе кеша
type RateProvider interface {
	FetchPairRate(ctx context.Context, base, target string) (float64, error)
	FetchFullTable(ctx context.Context, base string) (map[string]float64, error)
}

// RateCache строковое хранилище с TTL, разделяемое экземплярами сервиса
type RateCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RateService отдает курсы по схеме cache-aside.
// Одновременные промахи по одному ключу не объединяются: каждый запрос
// сходит к провайдеру сам, последняя запись в кеш побеждает.
type RateService struct {
	cache    RateCache
	provider RateProvider
	logger   *logrus.Logger
}

// ratesTTL срок жизни обеих форм ключей в кеше
const ratesTTL = cache.RatesTTLSeconds * time.Second

// NewRateService создает сервис курсов
func NewRateService(rateCache RateCache, provider RateProvider, logger *logrus.Logger) *RateService {
	return &RateService{
		cache:    rateCache,
		provider: provider,
		logger:   logger,
	}
}

// LookupPairRate возвращает курс base -> target
func (s *RateService) LookupPairRate(ctx context.Context, base, target string) (float64, error) {
	base, target = pkg.NormalizeCurrency(base), pkg.NormalizeCurrency(target)
	key := cache.PairKey(base, target)

	if value, ok := s.cached(ctx, "pair", key); ok {
		rate, err := cache.DecodePairRate(value)
		if err == nil {
			return rate, nil
		}
		s.logger.Warnf("Ignoring corrupt cache entry %s: %v", key, err)
	}

	rate, err := s.provider.FetchPairRate(ctx, base, target)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rate %s: %w", key, err)
	}

	s.store(ctx, key, cache.EncodePairRate(rate))
	return rate, nil
}

// LookupFullTable возвращает все курсы относительно base
func (s *RateService) LookupFullTable(ctx context.Context, base string) (map[string]float64, error) {
	base = pkg.NormalizeCurrency(base)
	key := cache.TableKey(base)

	if value, ok := s.cached(ctx, "table", key); ok {
		rates, err := cache.DecodeTable(value)
		if err == nil {
			return rates, nil
		}
		s.logger.Warnf("Ignoring corrupt cache entry %s: %v", key, err)
	}

	rates, err := s.provider.FetchFullTable(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates for %s: %w", base, err)
	}

	encoded, err := cache.EncodeTable(rates)
	if err != nil {
		s.logger.Warnf("Failed to encode rates table for %s: %v", base, err)
		return rates, nil
	}
	s.store(ctx, key, encoded)
	return rates, nil
}

// cached читает ключ. Недоступный кеш считается промахом.
func (s *RateService) cached(ctx context.Context, shape, key string) (string, bool) {
	value, found, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(shape, "error").Inc()
		s.logger.Warnf("Rate cache read failed, falling back to provider: %v", err)
		return "", false
	case !found:
		metrics.CacheLookups.WithLabelValues(shape, "miss").Inc()
		return "", false
	default:
		metrics.CacheLookups.WithLabelValues(shape, "hit").Inc()
		return value, true
	}
}

func (s *RateService) store(ctx context.Context, key, value string) {
	if err := s.cache.Set(ctx, key, value, ratesTTL); err != nil {
		s.logger.Warnf("Rate cache write failed: %v", err)
	}
}
