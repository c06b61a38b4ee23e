package storages

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User представляет пользователя системы
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// ConversionRecord запись истории обмена. После создания не изменяется.
type ConversionRecord struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	BaseCurrency    string    `db:"base_currency"`
	TargetCurrency  string    `db:"target_currency"`
	Amount          float64   `db:"amount"`
	ConvertedAmount float64   `db:"converted_amount"`
	Rate            float64   `db:"rate"`
	ExchangeTime    time.Time `db:"exchange_time"`
}

// CurrencyRate сохраненный курс пары, уникален по (base_currency, target_currency).
// Пишется только фоновым обновлением.
type CurrencyRate struct {
	ID             int64     `db:"id"`
	BaseCurrency   string    `db:"base_currency"`
	TargetCurrency string    `db:"target_currency"`
	Rate           float64   `db:"rate"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// LargeConversion уведомление о крупном обмене, хранится в MongoDB
type LargeConversion struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          int64              `bson:"user_id"`
	BaseCurrency    string             `bson:"base_currency"`
	TargetCurrency  string             `bson:"target_currency"`
	Amount          float64            `bson:"amount"`
	ConvertedAmount float64            `bson:"converted_amount"`
	Rate            float64            `bson:"rate"`
	ExchangeTime    time.Time          `bson:"exchange_time"`
	ProcessedAt     time.Time          `bson:"processed_at"`
	KafkaOffset     int64              `bson:"kafka_offset"`
	KafkaPartition  int                `bson:"kafka_partition"`
}

// NotificationStats агрегированная статистика уведомлений
type NotificationStats struct {
	TotalConversions int64     `bson:"total_conversions"`
	TotalAmount      float64   `bson:"total_amount"`
	AverageAmount    float64   `bson:"average_amount"`
	LastProcessedAt  time.Time `bson:"last_processed"`
}
