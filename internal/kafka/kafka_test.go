package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/storages"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerThreshold(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 30000, logger.Discard())
	ctx := context.Background()

	require.NoError(t, p.NotifyConversion(ctx, &storages.ConversionRecord{UserID: 1, Amount: 100}))
	assert.Empty(t, w.messages)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.NotifyConversion(ctx, &storages.ConversionRecord{
		UserID: 7, BaseCurrency: "USD", TargetCurrency: "RUB",
		Amount: 30000, ConvertedAmount: 2385300, Rate: 79.51, ExchangeTime: at,
	}))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "user_7", string(w.messages[0].Key))

	var msg ConversionMessage
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &msg))
	assert.Equal(t, int64(7), msg.UserID)
	assert.Equal(t, 79.51, msg.Rate)
	assert.True(t, at.Equal(msg.ExchangeTime))
}

func TestProducerWriteError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, 0, logger.Discard())
	err := p.NotifyConversion(context.Background(), &storages.ConversionRecord{UserID: 1, Amount: 1})
	assert.Error(t, err)
}

func TestParseMessage(t *testing.T) {
	valid := kafka.Message{
		Offset:    12,
		Partition: 1,
		Value:     []byte(`{"user_id":7,"base_currency":"USD","target_currency":"RUB","amount":50000,"converted_amount":3975500,"rate":79.51,"exchange_time":"2024-05-01T12:00:00Z"}`),
	}
	conv, err := parseMessage(valid)
	require.NoError(t, err)
	assert.Equal(t, int64(7), conv.UserID)
	assert.Equal(t, int64(12), conv.KafkaOffset)
	assert.Equal(t, 1, conv.KafkaPartition)

	_, err = parseMessage(kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)

	_, err = parseMessage(kafka.Message{Value: []byte(`{"amount":1}`)})
	assert.Error(t, err)
}

// fakeReader отдает заранее заданные сообщения и блокируется до отмены
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{messages: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		if len(r.messages) == 0 {
			close(r.drained)
		}
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeNotificationStorage struct {
	mu      sync.Mutex
	saved   []storages.LargeConversion
	batches int
	err     error
	calls   int
}

func (s *fakeNotificationStorage) SaveConversionBatch(ctx context.Context, conversions []storages.LargeConversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.batches++
	s.saved = append(s.saved, conversions...)
	return nil
}

func (s *fakeNotificationStorage) GetStatistics(ctx context.Context) (*storages.NotificationStats, error) {
	return &storages.NotificationStats{}, nil
}

func (s *fakeNotificationStorage) Ping(ctx context.Context) error  { return nil }
func (s *fakeNotificationStorage) Close(ctx context.Context) error { return nil }

func conversionMessage(offset int64, userID int64) kafka.Message {
	value, _ := json.Marshal(ConversionMessage{
		UserID: userID, BaseCurrency: "USD", TargetCurrency: "EUR", Amount: 40000, Rate: 0.93,
	})
	return kafka.Message{Offset: offset, Value: value}
}

func runConsumer(t *testing.T, reader *fakeReader, storage *fakeNotificationStorage, batchSize int) *Consumer {
	t.Helper()
	c := newConsumer(reader, &ConsumerConfig{
		BatchSize:     batchSize,
		FlushInterval: time.Hour,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, storage, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Start(ctx)
	}()

	<-reader.drained
	// даем обработчику забрать последние сообщения из канала
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	return c
}

func TestConsumerSavesAndCommitsBatches(t *testing.T) {
	reader := newFakeReader(
		conversionMessage(1, 7),
		conversionMessage(2, 8),
		kafka.Message{Offset: 3, Value: []byte("garbage")},
		conversionMessage(4, 9),
	)
	storage := &fakeNotificationStorage{}

	c := runConsumer(t, reader, storage, 2)

	assert.Len(t, storage.saved, 3)
	assert.Len(t, reader.committed, 4)

	stats := c.GetStatistics()
	assert.Equal(t, int64(3), stats["messages_processed"])
	assert.Equal(t, int64(1), stats["messages_failed"])
}

func TestConsumerDoesNotCommitFailedBatch(t *testing.T) {
	reader := newFakeReader(conversionMessage(1, 7), conversionMessage(2, 8))
	storage := &fakeNotificationStorage{err: errors.New("mongo down")}

	c := runConsumer(t, reader, storage, 2)

	assert.Empty(t, reader.committed)
	assert.Equal(t, 3, storage.calls)
	assert.Equal(t, int64(2), c.GetStatistics()["messages_failed"])
}
