package repository

import (
	"context"
	"time"

	"MarketAnalyst/internal/domain/models"
	pkgkafka "MarketAnalyst/pkg/kafka"
)

type kafkaPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	Close() error
}

// KafkaScorePublisher emits each confirmation score keyed by ticker, so all
// scores of one ticker land on the same partition in order.
type KafkaScorePublisher struct {
	producer kafkaPublisher
	topic    string
}

func NewKafkaScorePublisher(p *pkgkafka.Producer, topic string) *KafkaScorePublisher {
	return &KafkaScorePublisher{producer: p, topic: topic}
}

// ScoreEvent is the wire form of a published score.
type ScoreEvent struct {
	Ticker             string           `json:"ticker"`
	Score              float64          `json:"score"`
	Direction          models.Direction `json:"direction"`
	Reason             string           `json:"reason"`
	Periods            []string         `json:"periods"`
	LastPrice          float64          `json:"last_price"`
	LastOscillator     float64          `json:"last_oscillator"`
	SignalTime         time.Time        `json:"signal_time"`
	HistogramImproving bool             `json:"histogram_improving"`
	PublishedAt        time.Time        `json:"published_at"`
}

func (p *KafkaScorePublisher) PublishScore(ctx context.Context, s models.ConfirmationScore) error {
	ev := ScoreEvent{
		Ticker:             s.Ticker,
		Score:              s.Score,
		Direction:          s.Direction,
		Reason:             s.Reason,
		Periods:            s.Periods,
		LastPrice:          s.LastPrice,
		LastOscillator:     s.LastOscillator,
		SignalTime:         s.SignalTime.UTC(),
		HistogramImproving: s.HistogramImproving,
		PublishedAt:        time.Now().UTC(),
	}
	return p.producer.Publish(ctx, p.topic, s.Ticker, ev)
}

func (p *KafkaScorePublisher) Close() error { return p.producer.Close() }
