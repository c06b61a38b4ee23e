package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config содержит конфигурацию всех процессов сервиса
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Provider ProviderConfig
	Redis    RedisConfig
	Refresh  RefreshConfig
	GRPC     GRPCConfig
	Metrics  MetricsConfig
	Kafka    KafkaConfig
	Mongo    MongoConfig
	Notifier NotifierConfig
	Logger   LoggerConfig
}

// ServerConfig содержит конфигурацию HTTP сервера
type ServerConfig struct {
	HTTPPort string
	GinMode  string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig содержит конфигурацию JWT
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// ProviderConfig описывает внешний сервис курсов валют
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// RedisConfig содержит конфигурацию кеша курсов
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RefreshConfig содержит настройки фонового обновления курсов
type RefreshConfig struct {
	BaseCurrency   string
	Interval       time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RunOnStart     bool
}

type GRPCConfig struct {
	Port string
}

type MetricsConfig struct {
	Port string
}

// KafkaConfig содержит конфигурацию Kafka
type KafkaConfig struct {
	Brokers             []string
	Topic               string
	GroupID             string
	ConversionThreshold float64
}

// MongoConfig содержит конфигурацию MongoDB
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// NotifierConfig содержит настройки пакетной обработки уведомлений
type NotifierConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// LoggerConfig содержит конфигурацию логгера
type LoggerConfig struct {
	Level string
}

// Load загружает конфигурацию из файла окружения
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := &Config{}

	// Server
	cfg.Server.HTTPPort = getEnv("HTTP_PORT", DefaultHTTPPort)
	cfg.Server.GinMode = getEnv("GIN_MODE", DefaultGinMode)

	// Database
	cfg.Database.Host = getEnv("DB_HOST", DefaultDBHost)
	cfg.Database.Port = getEnvInt("DB_PORT", DefaultDBPort)
	cfg.Database.User = getEnv("DB_USER", DefaultDBUser)
	cfg.Database.Password = getEnv("DB_PASSWORD", DefaultDBPassword)
	cfg.Database.DBName = getEnv("DB_NAME", DefaultDBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", DefaultDBSSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", DefaultDBMaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", DefaultDBMaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", DefaultDBConnMaxLifetime)

	// JWT
	cfg.JWT.Secret = getEnv("JWT_SECRET", DefaultJWTSecret)
	cfg.JWT.Expiration = getEnvDuration("JWT_EXPIRATION", DefaultJWTExpiration)

	// Provider
	cfg.Provider.BaseURL = getEnv("PROVIDER_BASE_URL", DefaultProviderBaseURL)
	cfg.Provider.APIKey = getEnv("PROVIDER_API_KEY", "")
	cfg.Provider.Timeout = getEnvDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout)
	cfg.Provider.RPS = getEnvFloat("PROVIDER_RPS", DefaultProviderRPS)
	cfg.Provider.Burst = getEnvInt("PROVIDER_BURST", DefaultProviderBurst)

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", DefaultRedisAddr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", DefaultRedisDB)

	// Refresh
	cfg.Refresh.BaseCurrency = strings.ToUpper(getEnv("REFRESH_BASE_CURRENCY", DefaultRefreshBaseCurrency))
	cfg.Refresh.Interval = getEnvDuration("REFRESH_INTERVAL", DefaultRefreshInterval)
	cfg.Refresh.MaxRetries = getEnvInt("REFRESH_MAX_RETRIES", DefaultRefreshMaxRetries)
	cfg.Refresh.RetryBaseDelay = getEnvDuration("REFRESH_RETRY_BASE_DELAY", DefaultRefreshRetryBaseDelay)
	cfg.Refresh.RetryMaxDelay = getEnvDuration("REFRESH_RETRY_MAX_DELAY", DefaultRefreshRetryMaxDelay)
	cfg.Refresh.RunOnStart = getEnvBool("REFRESH_ON_START", false)

	cfg.GRPC.Port = getEnv("GRPC_PORT", DefaultGRPCPort)
	cfg.Metrics.Port = getEnv("METRICS_PORT", DefaultMetricsPort)

	// Kafka
	cfg.Kafka.Brokers = getEnvList("KAFKA_BROKERS", DefaultKafkaBrokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", DefaultKafkaTopic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", DefaultKafkaGroupID)
	cfg.Kafka.ConversionThreshold = getEnvFloat("KAFKA_CONVERSION_THRESHOLD", DefaultKafkaConversionThreshold)

	// MongoDB
	cfg.Mongo.URI = getEnv("MONGO_URI", DefaultMongoURI)
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", DefaultMongoDatabase)
	cfg.Mongo.Collection = getEnv("MONGO_COLLECTION", DefaultMongoCollection)
	cfg.Mongo.Timeout = getEnvDuration("MONGO_TIMEOUT", DefaultMongoTimeout)

	// Notifier
	cfg.Notifier.BatchSize = getEnvInt("NOTIFIER_BATCH_SIZE", DefaultNotifierBatchSize)
	cfg.Notifier.FlushInterval = getEnvDuration("NOTIFIER_FLUSH_INTERVAL", DefaultNotifierFlushInterval)
	cfg.Notifier.RetryAttempts = getEnvInt("NOTIFIER_RETRY_ATTEMPTS", DefaultNotifierRetryAttempts)
	cfg.Notifier.RetryDelay = getEnvDuration("NOTIFIER_RETRY_DELAY", DefaultNotifierRetryDelay)

	// Logger
	cfg.Logger.Level = getEnv("LOG_LEVEL", DefaultLogLevel)

	return cfg, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList разбивает значение по запятой, пустые элементы отбрасываются
func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate проверяет общие для всех процессов настройки
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	return nil
}

// ValidateAPI проверяет настройки HTTP API
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.Provider.APIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required")
	}

	return nil
}

// ValidateRefresher проверяет настройки процесса обновления курсов
func (c *Config) ValidateRefresher() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Provider.APIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required")
	}

	if len(c.Refresh.BaseCurrency) != 3 {
		return fmt.Errorf("invalid REFRESH_BASE_CURRENCY: %s", c.Refresh.BaseCurrency)
	}

	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}

	if c.Refresh.MaxRetries <= 0 {
		return fmt.Errorf("REFRESH_MAX_RETRIES must be positive")
	}

	return nil
}

// ValidateNotifier проверяет настройки процесса уведомлений
func (c *Config) ValidateNotifier() error {
	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if c.Notifier.BatchSize <= 0 {
		return fmt.Errorf("NOTIFIER_BATCH_SIZE must be positive")
	}

	return nil
}
