package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	publishedTotal *prometheus.CounterVec
	publishedBytes *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
	consumedTotal  *prometheus.CounterVec
	handleLatency  *prometheus.HistogramVec
	deadLettered   *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_kafka_published_total",
			Help: "Messages written to Kafka by result.",
		}, []string{"topic", "result"})
		publishedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_kafka_published_bytes_total",
			Help: "Payload bytes written to Kafka.",
		}, []string{"topic"})
		publishLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketanalyst_kafka_publish_seconds",
			Help:    "Kafka write latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		consumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_kafka_consumed_total",
			Help: "Messages handled by result.",
		}, []string{"topic", "result"})
		handleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketanalyst_kafka_handle_seconds",
			Help:    "Time spent handling a message including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		deadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_kafka_dead_lettered_total",
			Help: "Messages routed to the dead-letter topic.",
		}, []string{"topic"})
	})
}

func observePublish(topic string, count, size int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishedTotal.WithLabelValues(topic, result).Add(float64(count))
	publishedBytes.WithLabelValues(topic).Add(float64(size))
	publishLatency.WithLabelValues(topic).Observe(d.Seconds())
}

func observeHandle(topic string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	consumedTotal.WithLabelValues(topic, result).Inc()
	handleLatency.WithLabelValues(topic).Observe(d.Seconds())
}
