package repository

import (
	"context"
	"fmt"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/domain/repository"
	pkgkafka "DexPilot/pkg/kafka"
)

// KafkaActionPublisher implements ActionPublisher for Kafka. Messages are
// keyed by bot ID so one bot's actions stay ordered within a partition.
type KafkaActionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaActionPublisher creates the Kafka action publisher.
func NewKafkaActionPublisher(producer *pkgkafka.Producer, topic string) repository.ActionPublisher {
	return &KafkaActionPublisher{producer: producer, topic: topic}
}

func (p *KafkaActionPublisher) Publish(ctx context.Context, a *models.Action) error {
	if a == nil {
		return fmt.Errorf("action is nil")
	}
	return p.producer.Publish(ctx, p.topic, []byte(a.BotID), map[string]interface{}{
		"bot_id":              a.BotID,
		"strategy":            string(a.Kind),
		"pair":                a.Pair,
		"spread_low":          a.SpreadLow,
		"spread_high":         a.SpreadHigh,
		"order_size":          a.OrderSize,
		"max_position":        a.MaxPosition,
		"rebalance_threshold": a.RebalanceThreshold,
		"stop_loss":           a.StopLoss,
		"take_profit":         a.TakeProfit,
		"t":                   a.At.Unix(),
	})
}

func (p *KafkaActionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaAlertSink implements AlertSink on a Kafka alerts topic.
type KafkaAlertSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertSink creates the Kafka alert sink.
func NewKafkaAlertSink(producer *pkgkafka.Producer, topic string) repository.AlertSink {
	return &KafkaAlertSink{producer: producer, topic: topic}
}

func (s *KafkaAlertSink) Alert(ctx context.Context, kind, botID, message string) error {
	return s.producer.Publish(ctx, s.topic, []byte(botID), map[string]interface{}{
		"kind":    kind,
		"bot_id":  botID,
		"message": message,
	})
}
