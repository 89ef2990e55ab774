package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	docs "cryptodump/docs"
	"cryptodump/internal/algorithms/regroup"
	appmarketdata "cryptodump/internal/application/service/marketdata"
	appmarkets "cryptodump/internal/application/service/markets"
	"cryptodump/internal/application/service/ranking"
	"cryptodump/internal/config"
	"cryptodump/internal/infrastructure/broker"
	inframarketdata "cryptodump/internal/infrastructure/marketdata"
	inframarkets "cryptodump/internal/infrastructure/markets"
	"cryptodump/internal/infrastructure/metrics"
	infrahttp "cryptodump/internal/interfaces/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Host = cfg.HTTP.Addr()

	registry := metrics.Init(logger)

	marketdataRepo, err := inframarketdata.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init marketdata repo: %v", err)
	}
	defer marketdataRepo.Close()

	marketsRepo, err := inframarkets.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init markets repo: %v", err)
	}
	defer marketsRepo.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	regrouper, err := regroup.New(regroup.WithSize(cfg.Regroup.Size))
	if err != nil {
		logger.Fatalf("failed to init regrouper: %v", err)
	}

	rankingService := ranking.NewService()
	marketdataService := appmarketdata.NewService(marketdataRepo, regrouper, rankingService)
	marketsService := appmarkets.NewService(marketsRepo)

	handler := infrahttp.NewHandler(marketdataService, marketsService, rankingService,
		redisClient, cfg.Cache.TTL(), metrics.Handler(registry), logger)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP server listening on %s", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.RabbitMQ.Enabled() {
		consumer, err := broker.NewConsumer(cfg.RabbitMQ, marketdataService, logger)
		if err != nil {
			logger.Fatalf("failed to init consumer: %v", err)
		}
		if err := consumer.Start(gctx); err != nil {
			logger.Fatalf("failed to start consumer: %v", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer closeCancel()
			return consumer.Close(closeCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server stopped with error: %v", err)
		return
	}
	logger.Info("server stopped")
}
