package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gw-currency-rates/internal/api"
	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/cache"
	"gw-currency-rates/internal/config"
	"gw-currency-rates/internal/kafka"
	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/provider"
	"gw-currency-rates/internal/service"
	"gw-currency-rates/internal/storages/postgres"
)

// @title Currency Rates API
// @version 1.0
// @description API for currency exchange rates, conversions and conversion history
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Парсинг флагов командной строки
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateAPI(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	log := logger.New(cfg.Logger.Level)
	log.Info("Starting gw-currency-rates API...")
	log.Infof("Configuration loaded from: %s", *configPath)

	// Подключение к базе данных
	storage, err := postgres.New(&postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	cancel()
	log.Info("Database connection established")

	// Кеш курсов в Redis. Недоступный кеш не мешает старту: запросы идут к провайдеру.
	redisClient := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ratesCache := cache.NewRatesCache(redisClient, log)
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	if err := ratesCache.Ping(ctx); err != nil {
		log.Warnf("Redis ping failed: %v (rates will be fetched from provider)", err)
	} else {
		log.Info("Rates cache initialized")
	}
	cancel()

	// Клиент внешнего сервиса курсов
	rateProvider := provider.NewClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
		RPS:     cfg.Provider.RPS,
		Burst:   cfg.Provider.Burst,
	}, log)

	// Kafka producer для крупных конвертаций
	kafkaProducer := kafka.NewProducer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		cfg.Kafka.ConversionThreshold,
		log,
	)
	defer kafkaProducer.Close()

	// Сервисный слой
	rateService := service.NewRateService(ratesCache, rateProvider, log)
	services := api.Services{
		Auth:        service.NewAuthService(storage, log),
		Rates:       rateService,
		Conversions: service.NewConversionService(rateService, storage, kafkaProducer, log),
	}

	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration, log)
	router := api.SetupRouter(services, jwtMiddleware, log, cfg.Server.GinMode)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("HTTP server is listening on port %s", cfg.Server.HTTPPort)
		log.Infof("Swagger documentation available at: http://localhost:%s/swagger/index.html", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Ожидание сигнала завершения
	<-done
	log.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
