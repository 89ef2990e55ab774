package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	OrderbooksRegroupedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbooks_regrouped_total",
		Help: "Order book snapshots regrouped by exchange",
	}, []string{"exchange"})
	RegroupLatencyMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "regroup_latency_ms",
		Help:    "Time spent regrouping one snapshot",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	})
	RegroupErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regroup_errors_total",
		Help: "Snapshots rejected by the regrouping algorithm",
	})
	BatchFlushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_flushes_total",
		Help: "Batch writer flushes by entity and result",
	}, []string{"entity", "result"})
	BatchSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_size",
		Help:    "Rows per flushed batch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"entity"})
	ExchangeRequestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_request_errors_total",
		Help: "Exchange API errors by exchange and endpoint",
	}, []string{"exchange", "endpoint"})
	WSReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_reconnects_total",
		Help: "WebSocket reconnects by exchange",
	}, []string{"exchange"})
	MessagesPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_published_total",
		Help: "Broker messages published by stream",
	}, []string{"stream"})
	MessagesConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_consumed_total",
		Help: "Broker messages consumed by stream and result",
	}, []string{"stream", "result"})
)

// Init registers the collectors above plus Go and process metrics on a fresh
// registry.
func Init(logger *logrus.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		OrderbooksRegroupedTotal, RegroupLatencyMs, RegroupErrorsTotal,
		BatchFlushesTotal, BatchSize,
		ExchangeRequestErrorsTotal, WSReconnectsTotal,
		MessagesPublishedTotal, MessagesConsumedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := reg.Register(c); err != nil && logger != nil {
			logger.WithError(err).Warn("register collector")
		}
	}
	if logger != nil {
		logger.Debug("prometheus metrics initialized")
	}
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
