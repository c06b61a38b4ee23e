package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gw-currency-rates/internal/config"
	"gw-currency-rates/internal/grpc"
	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/provider"
	"gw-currency-rates/internal/refresh"
	"gw-currency-rates/internal/storages/postgres"
)

func main() {
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateRefresher(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level)
	log.Info("Starting gw-currency-rates refresher...")

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

	rateProvider := provider.NewClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
		RPS:     cfg.Provider.RPS,
		Burst:   cfg.Provider.Burst,
	}, log)

	job := refresh.NewJob(rateProvider, storage, refresh.Config{
		BaseCurrency:   cfg.Refresh.BaseCurrency,
		MaxRetries:     cfg.Refresh.MaxRetries,
		RetryBaseDelay: cfg.Refresh.RetryBaseDelay,
		RetryMaxDelay:  cfg.Refresh.RetryMaxDelay,
	}, log)

	// gRPC health: статус rates.refresh отражает итог последнего прогона
	healthServer := grpc.NewHealthServer(log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		log.Fatalf("Failed to listen on gRPC port %s: %v", cfg.GRPC.Port, err)
	}
	go func() {
		if err := healthServer.Serve(lis); err != nil {
			log.Errorf("gRPC server stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Metrics.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("Metrics are served on port %s", cfg.Metrics.Port)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server stopped: %v", err)
		}
	}()

	scheduler := refresh.NewScheduler(job, cfg.Refresh.Interval, cfg.Refresh.RunOnStart, healthServer, log)
	scheduler.Start(context.Background())
	log.Infof("Refreshing %s rates every %s", cfg.Refresh.BaseCurrency, cfg.Refresh.Interval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down refresher...")

	scheduler.Stop()
	healthServer.GracefulStop()

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(ctx); err != nil {
		log.Errorf("Metrics server forced to shutdown: %v", err)
	}

	log.Info("Refresher stopped gracefully")
}
