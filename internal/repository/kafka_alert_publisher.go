package repository

import (
	"context"
	"fmt"

	"RiskScreen/internal/domain/models"
	domrepo "RiskScreen/internal/domain/repository"
	pkgkafka "RiskScreen/pkg/kafka"
)

// batchProducer is the subset of the Kafka producer used for alerts.
type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaAlertPublisher publishes alerts keyed by entity so one entity's alerts keep partition order.
type KafkaAlertPublisher struct {
	producer batchProducer
	topic    string
}

func NewKafkaAlertPublisher(producer batchProducer, topic string) domrepo.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(alerts))
	for _, a := range alerts {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(a.Entity), Value: a})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish alerts: %w", err)
	}
	return nil
}

func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}
