package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/storages"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig конфигурация consumer
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	GroupID       string
	BatchSize     int
	FlushInterval time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Consumer читает уведомления о конвертациях и сохраняет их пакетами.
// Смещения коммитятся только после успешного сохранения пакета.
type Consumer struct {
	reader        messageReader
	storage       storages.NotificationStorage
	logger        *logrus.Logger
	batchSize     int
	flushInterval time.Duration
	retryAttempts int
	retryDelay    time.Duration

	mu                sync.RWMutex
	messagesProcessed int64
	messagesFailed    int64
	startTime         time.Time
}

// NewConsumer создает новый Kafka consumer
func NewConsumer(cfg *ConsumerConfig, storage storages.NotificationStorage, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     500 * time.Millisecond,
		Logger:      kafka.LoggerFunc(logger.Debugf),
		ErrorLogger: kafka.LoggerFunc(logger.Errorf),
	})

	logger.Infof("Kafka consumer initialized: Topic=%s, GroupID=%s, Brokers=%v",
		cfg.Topic, cfg.GroupID, cfg.Brokers)

	return newConsumer(reader, cfg, storage, logger)
}

func newConsumer(reader messageReader, cfg *ConsumerConfig, storage storages.NotificationStorage, logger *logrus.Logger) *Consumer {
	c := &Consumer{
		reader:        reader,
		storage:       storage,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		startTime:     time.Now(),
	}
	if c.batchSize <= 0 {
		c.batchSize = 1
	}
	if c.flushInterval <= 0 {
		c.flushInterval = 5 * time.Second
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = 1
	}
	if c.retryDelay <= 0 {
		c.retryDelay = time.Second
	}
	return c
}

// Start читает сообщения до отмены ctx
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer...")

	messages := make(chan kafka.Message, c.batchSize*2)
	go func() {
		defer close(messages)
		c.readMessages(ctx, messages)
	}()

	c.processMessages(ctx, messages)

	c.logger.Info("Kafka consumer stopped")
	return nil
}

func (c *Consumer) readMessages(ctx context.Context, messages chan<- kafka.Message) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Failed to fetch message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) processMessages(ctx context.Context, messages <-chan kafka.Message) {
	batch := make([]storages.LargeConversion, 0, c.batchSize)
	pending := make([]kafka.Message, 0, c.batchSize)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		c.flushBatch(ctx, batch, pending)
		batch = batch[:0]
		pending = pending[:0]
	}

	for {
		select {
		case <-ticker.C:
			if len(pending) > 0 {
				flush(ctx)
			}

		case msg, ok := <-messages:
			if !ok {
				// ctx уже отменен, дописываем остаток с отдельным таймаутом
				if len(pending) > 0 {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					flush(shutdownCtx)
					cancel()
				}
				return
			}

			conversion, err := parseMessage(msg)
			if err != nil {
				c.logger.Errorf("Failed to parse message at offset %d: %v", msg.Offset, err)
				c.incrementFailed(1)
				// битое сообщение коммитим, чтобы не блокировать очередь
				pending = append(pending, msg)
				continue
			}

			batch = append(batch, *conversion)
			pending = append(pending, msg)

			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		}
	}
}

// parseMessage переводит сообщение Kafka в документ MongoDB
func parseMessage(msg kafka.Message) (*storages.LargeConversion, error) {
	var m ConversionMessage
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if m.UserID == 0 || m.BaseCurrency == "" || m.TargetCurrency == "" {
		return nil, fmt.Errorf("incomplete conversion message")
	}

	return &storages.LargeConversion{
		UserID:          m.UserID,
		BaseCurrency:    m.BaseCurrency,
		TargetCurrency:  m.TargetCurrency,
		Amount:          m.Amount,
		ConvertedAmount: m.ConvertedAmount,
		Rate:            m.Rate,
		ExchangeTime:    m.ExchangeTime,
		KafkaOffset:     msg.Offset,
		KafkaPartition:  msg.Partition,
	}, nil
}

// flushBatch сохраняет пакет с повторами и коммитит смещения
func (c *Consumer) flushBatch(ctx context.Context, batch []storages.LargeConversion, messages []kafka.Message) {
	if len(messages) == 0 {
		return
	}

	start := time.Now()
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.retryAttempts-1), retry.NewConstant(c.retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.storage.SaveConversionBatch(ctx, batch); err != nil {
			c.logger.Warnf("Attempt %d/%d: Failed to save batch: %v", attempt, c.retryAttempts, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		c.logger.Errorf("Failed to save batch after %d attempts: %v", attempt, err)
		c.incrementFailed(int64(len(batch)))
		return
	}

	if err := c.reader.CommitMessages(ctx, messages...); err != nil {
		c.logger.Errorf("Failed to commit messages: %v", err)
		return
	}

	c.incrementProcessed(int64(len(batch)))
	c.logger.Infof("Flushed batch: size=%d, duration=%v", len(batch), time.Since(start))
}

func (c *Consumer) incrementProcessed(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesProcessed += count
}

func (c *Consumer) incrementFailed(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesFailed += count
}

// GetStatistics возвращает статистику обработки
func (c *Consumer) GetStatistics() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	duration := time.Since(c.startTime)
	return map[string]interface{}{
		"messages_processed": c.messagesProcessed,
		"messages_failed":    c.messagesFailed,
		"processing_rate":    float64(c.messagesProcessed) / duration.Seconds(),
		"uptime_seconds":     duration.Seconds(),
	}
}

// Close закрывает consumer
func (c *Consumer) Close() error {
	c.logger.Info("Closing Kafka consumer")
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
