package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/storages"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует уведомления о конвертациях не меньше порога
type Producer struct {
	writer    messageWriter
	threshold float64
	logger    *logrus.Logger
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string, topic string, threshold float64, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger:  kafka.LoggerFunc(logger.Errorf),
	}

	logger.Infof("Kafka producer initialized for topic: %s", topic)
	return newProducer(writer, threshold, logger)
}

func newProducer(writer messageWriter, threshold float64, logger *logrus.Logger) *Producer {
	return &Producer{
		writer:    writer,
		threshold: threshold,
		logger:    logger,
	}
}

// NotifyConversion отправляет уведомление, если сумма не меньше порога
func (p *Producer) NotifyConversion(ctx context.Context, record *storages.ConversionRecord) error {
	if record.Amount < p.threshold {
		p.logger.Debugf("Conversion amount %.2f is below threshold %.2f, skipping Kafka notification",
			record.Amount, p.threshold)
		return nil
	}

	value, err := json.Marshal(ConversionMessage{
		UserID:          record.UserID,
		BaseCurrency:    record.BaseCurrency,
		TargetCurrency:  record.TargetCurrency,
		Amount:          record.Amount,
		ConvertedAmount: record.ConvertedAmount,
		Rate:            record.Rate,
		ExchangeTime:    record.ExchangeTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// ключ по пользователю сохраняет порядок его сообщений в партиции
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("user_%d", record.UserID)),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Errorf("Failed to send message to Kafka: %v", err)
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Infof("Sent large conversion notification: UserID=%d, Amount=%.2f %s",
		record.UserID, record.Amount, record.BaseCurrency)
	return nil
}

// Close закрывает Kafka producer
func (p *Producer) Close() error {
	if p.writer != nil {
		p.logger.Info("Closing Kafka producer")
		return p.writer.Close()
	}
	return nil
}
