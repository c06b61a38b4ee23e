package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrCacheUnavailable хранилище кеша недоступно. Вызывающая сторона
// должна трактовать это как промах.
var ErrCacheUnavailable = errors.New("rates cache unavailable")

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient создает клиент Redis, общий для всех экземпляров сервиса
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RatesCache кеш курсов валют поверх Redis. Хранит только строки,
// сериализация значений описана в keys.go.
type RatesCache struct {
	client redis.Cmdable
	logger *logrus.Logger
}

// NewRatesCache создает кеш курсов
func NewRatesCache(client redis.Cmdable, logger *logrus.Logger) *RatesCache {
	return &RatesCache{
		client: client,
		logger: logger,
	}
}

// Get возвращает значение по ключу. Отсутствие ключа не ошибка: found == false.
func (c *RatesCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrCacheUnavailable, key, err)
	}
	return value, true, nil
}

// Set сохраняет значение с TTL (SET key value EX seconds)
func (c *RatesCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrCacheUnavailable, key, err)
	}
	c.logger.Debugf("Cached %s for %s", key, ttl)
	return nil
}

// Ping проверяет доступность Redis
func (c *RatesCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
