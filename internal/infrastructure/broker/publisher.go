package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cryptodump/internal/config"
	domain "cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/infrastructure/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher writes market data to the fanout exchanges read by Consumer.
type Publisher struct {
	channel channel
	cfg     config.RabbitMQConfig
	logger  *logrus.Entry
	mu      sync.Mutex
}

func NewPublisher(conn *amqp.Connection, cfg config.RabbitMQConfig, logger *logrus.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	pub, err := newPublisher(ch, cfg, logger.WithField("component", "publisher"))
	if err != nil {
		ch.Close()
		return nil, err
	}
	return pub, nil
}

func newPublisher(ch channel, cfg config.RabbitMQConfig, logger *logrus.Entry) (*Publisher, error) {
	declared := map[string]struct{}{}
	for _, name := range []string{cfg.TradesExchange, cfg.OrderBooksExchange, cfg.FundingExchange} {
		if name == "" {
			return nil, errors.New("exchange name cannot be empty")
		}
		if _, ok := declared[name]; ok {
			continue
		}
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare exchange %s: %w", name, err)
		}
		declared[name] = struct{}{}
	}
	return &Publisher{channel: ch, cfg: cfg, logger: logger}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		p.logger.WithError(err).Error("close rabbitmq channel")
	}
}

func (p *Publisher) PublishTrade(ctx context.Context, trade *domain.Trade) error {
	return p.publish(ctx, streamTrade, p.cfg.TradesExchange, BaseMessage{Trade: trade})
}

func (p *Publisher) PublishOrderbook(ctx context.Context, book *domain.GroupedOrderbook) error {
	return p.publish(ctx, streamOrderBook, p.cfg.OrderBooksExchange, BaseMessage{Orderbook: book})
}

func (p *Publisher) PublishFunding(ctx context.Context, rate *domain.FundingRate) error {
	return p.publish(ctx, streamFunding, p.cfg.FundingExchange, BaseMessage{Funding: rate})
}

func (p *Publisher) publish(ctx context.Context, stream streamType, exchange string, msg BaseMessage) error {
	body, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", stream, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", stream, err)
	}
	metrics.MessagesPublishedTotal.WithLabelValues(string(stream)).Inc()
	return nil
}
