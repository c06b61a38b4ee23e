package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/config"
	"gw-currency-rates/internal/kafka"
	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/storages/mongodb"
	"gw-currency-rates/pkg"
)

const statsInterval = 30 * time.Second

func main() {
	// Парсинг флагов командной строки
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateNotifier(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level)
	log.Info("Starting gw-currency-rates notifier...")

	// Подключение к MongoDB
	storage, err := mongodb.New(&mongodb.Config{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
		Timeout:    cfg.Mongo.Timeout,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		storage.Close(ctx)
	}()

	consumer := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		GroupID:       cfg.Kafka.GroupID,
		BatchSize:     cfg.Notifier.BatchSize,
		FlushInterval: cfg.Notifier.FlushInterval,
		RetryAttempts: cfg.Notifier.RetryAttempts,
		RetryDelay:    cfg.Notifier.RetryDelay,
	}, storage, log)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Start(ctx)
	}()

	// Периодический вывод статистики
	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logStatistics(log, consumer, storage)
			}
		}
	}()

	select {
	case <-sigChan:
		log.Info("Received shutdown signal...")
	case err := <-consumerErr:
		if err != nil {
			log.Errorf("Consumer error: %v", err)
		}
		consumerErr <- nil
	}

	log.Info("Shutting down notifier...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded, forcing exit")
	case err := <-consumerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Consumer shutdown error: %v", err)
		}
	}

	logStatistics(log, consumer, storage)
	uptime := consumer.GetStatistics()["uptime_seconds"].(float64)
	log.Infof("Notifier stopped gracefully, uptime %s", pkg.FormatDuration(time.Duration(uptime*float64(time.Second))))
}

// logStatistics выводит статистику consumer и хранилища
func logStatistics(log *logrus.Logger, consumer *kafka.Consumer, storage *mongodb.MongoStorage) {
	consumerStats := consumer.GetStatistics()
	log.Infof("Consumer Statistics: Processed=%d, Failed=%d, Rate=%.2f msg/s, Uptime=%.0fs",
		consumerStats["messages_processed"],
		consumerStats["messages_failed"],
		consumerStats["processing_rate"],
		consumerStats["uptime_seconds"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := storage.GetStatistics(ctx)
	if err != nil {
		log.Warnf("Failed to get storage statistics: %v", err)
		return
	}

	log.Infof("Storage Statistics: Conversions=%d, TotalAmount=%.2f, AvgAmount=%.2f",
		stats.TotalConversions,
		stats.TotalAmount,
		stats.AverageAmount)
}
