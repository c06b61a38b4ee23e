package config

import "time"

// Server defaults
const (
	DefaultHTTPPort = "8080"
	DefaultGinMode  = "release"
	DefaultLogLevel = "info"
)

// Database defaults
const (
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "rates_user"
	DefaultDBPassword        = "rates_password"
	DefaultDBName            = "rates_db"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 25
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 5 * time.Minute
)

// JWT defaults
const (
	DefaultJWTSecret     = "change-me-in-production"
	DefaultJWTExpiration = 24 * time.Hour
)

// Provider defaults
const (
	DefaultProviderBaseURL = "https://v6.exchangerate-api.com/v6"
	DefaultProviderTimeout = 10 * time.Second
	DefaultProviderRPS     = 5.0
	DefaultProviderBurst   = 10
)

// Cache defaults
const (
	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0
)

// Refresh defaults
const (
	DefaultRefreshBaseCurrency   = "USD"
	DefaultRefreshInterval       = time.Hour
	DefaultRefreshMaxRetries     = 5
	DefaultRefreshRetryBaseDelay = time.Second
	DefaultRefreshRetryMaxDelay  = 10 * time.Minute
	DefaultGRPCPort              = "50051"
	DefaultMetricsPort           = "9100"
)

// Kafka defaults
const (
	DefaultKafkaBrokers             = "localhost:9092"
	DefaultKafkaTopic               = "large-conversions"
	DefaultKafkaGroupID             = "rates-notifier-group"
	DefaultKafkaConversionThreshold = 30000.0
)

// MongoDB defaults
const (
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "notification_db"
	DefaultMongoCollection = "large_conversions"
	DefaultMongoTimeout    = 10 * time.Second
)

// Notifier defaults
const (
	DefaultNotifierBatchSize     = 100
	DefaultNotifierFlushInterval = 5 * time.Second
	DefaultNotifierRetryAttempts = 3
	DefaultNotifierRetryDelay    = time.Second
)
