package storages

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrPersistence база данных недоступна или отклонила операцию
	ErrPersistence = errors.New("persistence error")
)

// UserStorage операции с пользователями
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID int64) (*User, error)
}

// HistoryStorage история обменов. Пишет сюда только обработка конвертаций.
type HistoryStorage interface {
	CreateConversion(ctx context.Context, record *ConversionRecord) error
	// ListConversionsByUser возвращает записи от новых к старым
	ListConversionsByUser(ctx context.Context, userID int64) ([]ConversionRecord, error)
}

// RateStorage сохраненные курсы. Пишет сюда только фоновое обновление.
type RateStorage interface {
	BeginRatesTx(ctx context.Context) (RatesTx, error)
}

// RatesTx транзакция обновления курсов: все изменения фиксируются разом или не фиксируются вовсе
type RatesTx interface {
	GetRatesByBase(ctx context.Context, base string) ([]CurrencyRate, error)
	UpdateRate(ctx context.Context, rate *CurrencyRate) error
	CreateRate(ctx context.Context, rate *CurrencyRate) error
	Commit() error
	Rollback() error
}

// Storage реляционное хранилище сервиса
type Storage interface {
	UserStorage
	HistoryStorage
	RateStorage

	Ping(ctx context.Context) error
	Close() error
}

// NotificationStorage хранилище уведомлений о крупных обменах
type NotificationStorage interface {
	SaveConversionBatch(ctx context.Context, conversions []LargeConversion) error
	GetStatistics(ctx context.Context) (*NotificationStats, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
