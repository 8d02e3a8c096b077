package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tonic56/cryptofolio/internal/config"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/segmentio/kafka-go"
)

const priceEventKey = "prices"

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.EventsConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxAttempts:  cfg.MaxAttempts,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.PriceRefreshed) error {
	const op = "events.kafka.Publish"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(priceEventKey),
		Value: payload,
		Time:  event.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
