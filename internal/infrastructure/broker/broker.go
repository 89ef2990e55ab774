package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cryptodump/internal/config"
	domain "cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/infrastructure/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Service is what the consumer needs from the market data service.
type Service interface {
	Sink
	Regroup(book *domain.GroupedOrderbook) (*domain.RegroupedOrderbook, error)
}

// Consumer subscribes to RabbitMQ fanout exchanges and forwards messages
// into the market data service via buffered batch writers. Raw order books
// are regrouped on receipt, so only fixed-width snapshots are buffered.
type Consumer struct {
	cfg     config.RabbitMQConfig
	service Service
	logger  *logrus.Logger

	conn     *amqp.Connection
	channels []*amqp.Channel
	wg       sync.WaitGroup
	batcher  *BatchWriter
}

// NewConsumer prepares a consumer for the given configuration.
func NewConsumer(cfg config.RabbitMQConfig, service Service, logger *logrus.Logger) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	batchCfg := BatchConfig{
		Size:    cfg.BatchSize,
		Timeout: cfg.BatchTimeout,
	}
	consumer := &Consumer{
		cfg:     cfg,
		service: service,
		logger:  logger,
		batcher: NewBatchWriter(batchCfg, service, logger),
	}
	return consumer, nil
}

// Start establishes the AMQP connection and begins consuming fanout exchanges.
func (c *Consumer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	c.conn = conn
	c.batcher.Run(ctx)

	if err := c.startStream(ctx, streamTrade, c.cfg.TradesExchange); err != nil {
		c.Close(ctx)
		return err
	}
	if err := c.startStream(ctx, streamOrderBook, c.cfg.OrderBooksExchange); err != nil {
		c.Close(ctx)
		return err
	}
	if err := c.startStream(ctx, streamFunding, c.cfg.FundingExchange); err != nil {
		c.Close(ctx)
		return err
	}

	c.logger.Infof("rabbitmq consumer started: exchanges=%s,%s,%s", c.cfg.TradesExchange, c.cfg.OrderBooksExchange, c.cfg.FundingExchange)
	return nil
}

// Close stops consumption, flushes pending batches, and releases resources.
func (c *Consumer) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, ch := range c.channels {
		_ = ch.Close()
	}
	c.channels = nil
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.wg.Wait()
	if c.batcher == nil {
		return nil
	}
	return c.batcher.Stop(ctx)
}

func (c *Consumer) startStream(ctx context.Context, stream streamType, exchange string) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel for %s: %w", stream, err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("declare queue for %s: %w", stream, err)
	}
	if err := ch.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("bind queue %s to %s: %w", queue.Name, exchange, err)
	}
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("set qos for %s: %w", stream, err)
	}
	deliveries, err := ch.Consume(queue.Name, "", false, true, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("start consume for %s: %w", stream, err)
	}
	c.channels = append(c.channels, ch)
	c.wg.Add(1)
	go c.consumeLoop(ctx, stream, deliveries)
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, stream streamType, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.WithField("stream", string(stream))
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			if err := c.handleDelivery(stream, delivery.Body); err != nil {
				metrics.MessagesConsumedTotal.WithLabelValues(string(stream), "error").Inc()
				log.WithError(err).Warn("failed to process message")
				_ = delivery.Nack(false, !errors.Is(err, errMalformed))
				continue
			}
			metrics.MessagesConsumedTotal.WithLabelValues(string(stream), "ok").Inc()
			if err := delivery.Ack(false); err != nil {
				log.WithError(err).Warn("failed to ack delivery")
			}
		}
	}
}

// errMalformed marks messages that can never be processed; they are dropped
// instead of requeued.
var errMalformed = errors.New("malformed message")

func (c *Consumer) handleDelivery(stream streamType, body []byte) error {
	payload, err := decodeMessage(body)
	if err != nil {
		return fmt.Errorf("%w: decode payload: %w", errMalformed, err)
	}
	switch stream {
	case streamTrade:
		if payload.Trade == nil {
			return fmt.Errorf("%w: trade payload is nil", errMalformed)
		}
		return c.batcher.AddTrade(payload.Trade)
	case streamOrderBook:
		if payload.Orderbook == nil {
			return fmt.Errorf("%w: order book payload is nil", errMalformed)
		}
		regrouped, err := c.service.Regroup(payload.Orderbook)
		if err != nil {
			return fmt.Errorf("%w: %w", errMalformed, err)
		}
		return c.batcher.AddOrderBook(regrouped)
	case streamFunding:
		if payload.Funding == nil {
			return fmt.Errorf("%w: funding payload is nil", errMalformed)
		}
		return c.batcher.AddFunding(payload.Funding)
	default:
		return fmt.Errorf("unsupported stream: %s", stream)
	}
}

type streamType string

func (s streamType) String() string {
	return string(s)
}

const (
	streamTrade     streamType = "trades"
	streamOrderBook streamType = "orderbooks"
	streamFunding   streamType = "funding"
)
