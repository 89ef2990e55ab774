package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cryptodump/internal/config"
	domain "cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/infrastructure/broker"
	"cryptodump/internal/infrastructure/exchange/binance"
	"cryptodump/internal/infrastructure/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type depthSource interface {
	Depth(ctx context.Context, symbol string, limit int) (*domain.GroupedOrderbook, error)
}

type fundingSource interface {
	PremiumIndex(ctx context.Context) ([]domain.FundingRate, error)
}

type orderbookPublisher interface {
	PublishOrderbook(ctx context.Context, book *domain.GroupedOrderbook) error
}

type fundingPublisher interface {
	PublishFunding(ctx context.Context, rate *domain.FundingRate) error
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadProducer()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	metrics.Init(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rabbitConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatalf("connect rabbitmq: %v", err)
	}
	defer rabbitConn.Close()

	pub, err := broker.NewPublisher(rabbitConn, cfg.RabbitMQ, logger)
	if err != nil {
		logger.Fatalf("init publisher: %v", err)
	}
	defer pub.Close()

	client := binance.NewClient(cfg.Binance, logger)

	g, gctx := errgroup.WithContext(ctx)
	for _, market := range cfg.Markets {
		g.Go(func() error {
			return pollDepth(gctx, client, pub, market, cfg.DepthLimit, cfg.DepthInterval, logger)
		})
	}
	g.Go(func() error {
		return pollFunding(gctx, client, pub, cfg.Markets, cfg.FundingInterval, logger)
	})
	if cfg.StreamTrades {
		g.Go(func() error {
			return client.StreamTrades(gctx, cfg.Markets, func(ctx context.Context, trade *domain.Trade) error {
				return pub.PublishTrade(ctx, trade)
			})
		})
	}

	logger.WithFields(logrus.Fields{
		"markets":       len(cfg.Markets),
		"trades_ex":     cfg.RabbitMQ.TradesExchange,
		"orderbooks_ex": cfg.RabbitMQ.OrderBooksExchange,
		"funding_ex":    cfg.RabbitMQ.FundingExchange,
	}).Info("producer started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("producer stopped with error: %v", err)
	}

	logger.Info("producer stopped")
}

// pollDepth publishes a depth snapshot of market every interval. Transient
// failures are logged and retried on the next tick; a symbol the exchange
// rejects stops only its own poller.
func pollDepth(ctx context.Context, src depthSource, pub orderbookPublisher, market string, limit int, interval time.Duration, logger *logrus.Logger) error {
	log := logger.WithField("market", market)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		book, err := src.Depth(ctx, market, limit)
		switch {
		case binance.IsNotRetryable(err):
			log.WithError(err).Error("depth polling disabled")
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warn("depth snapshot failed")
		default:
			if err := pub.PublishOrderbook(ctx, book); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollFunding publishes the funding rates of markets every interval.
func pollFunding(ctx context.Context, src fundingSource, pub fundingPublisher, markets []string, interval time.Duration, logger *logrus.Logger) error {
	tracked := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		tracked[strings.ToUpper(m)] = struct{}{}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rates, err := src.PremiumIndex(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithError(err).Warn("funding poll failed")
		}
		published := 0
		for i := range rates {
			if _, ok := tracked[rates[i].Market]; !ok {
				continue
			}
			if err := pub.PublishFunding(ctx, &rates[i]); err != nil {
				return err
			}
			published++
		}
		if err == nil {
			logger.WithField("rates", published).Debug("funding published")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
