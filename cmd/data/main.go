package main

import (
	"context"
	"os/signal"
	"syscall"

	appmarkets "cryptodump/internal/application/service/markets"
	"cryptodump/internal/config"
	"cryptodump/internal/infrastructure/exchange/binance"
	inframarkets "cryptodump/internal/infrastructure/markets"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadData()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	repo, err := inframarkets.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	service := appmarkets.NewService(repo)
	defer service.Close()

	client := binance.NewClient(cfg.Binance, logger)

	synced, err := service.Sync(ctx, client, cfg.QuoteAsset, cfg.TopMarkets)
	if err != nil {
		logger.Fatalf("sync markets: %v", err)
	}

	symbols := make([]string, len(synced))
	for i, m := range synced {
		symbols[i] = m.Symbol
	}
	logger.WithFields(logrus.Fields{
		"exchange": client.Name(),
		"quote":    cfg.QuoteAsset,
		"markets":  len(synced),
		"symbols":  symbols,
	}).Info("market registry sync finished")
}
