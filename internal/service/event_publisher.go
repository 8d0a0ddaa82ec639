package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

const (
	EventRecommendationCreated       = "recommendation.created"
	EventRecommendationStatusChanged = "recommendation.status_changed"
	EventRecommendationDeleted       = "recommendation.deleted"
)

type RecommendationEvent struct {
	Type             string                      `json:"type"`
	RecommendationID string                      `json:"recommendation_id"`
	AuthorID         string                      `json:"author_id"`
	RecipientID      string                      `json:"recipient_id"`
	Status           domain.RecommendationStatus `json:"status"`
	OccurredAt       time.Time                   `json:"occurred_at"`
}

func newRecommendationEvent(eventType string, rec *domain.Recommendation, at time.Time) RecommendationEvent {
	return RecommendationEvent{
		Type:             eventType,
		RecommendationID: rec.ID,
		AuthorID:         rec.AuthorID,
		RecipientID:      rec.RecipientID,
		Status:           rec.Status,
		OccurredAt:       at.UTC(),
	}
}

// KafkaEventPublisher writes one record per event keyed by recommendation id,
// so all events of one recommendation land on the same partition.
type KafkaEventPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaEventPublisher(brokers []string, topic string) (*KafkaEventPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaEventPublisher{client: client, topic: topic}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev RecommendationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.RecommendationID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		observability.RecordEventPublish(ctx, ev.Type, "kafka", "error")
		return fmt.Errorf("produce %s: %w", ev.Type, err)
	}
	observability.RecordEventPublish(ctx, ev.Type, "kafka", "success")
	return nil
}

// Ping checks that at least one seed broker answers.
func (p *KafkaEventPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *KafkaEventPublisher) Close() {
	p.client.Close()
}

// LogEventPublisher is used when no broker is configured.
type LogEventPublisher struct {
	logger *slog.Logger
}

func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: observability.ComponentLogger(logger, "events")}
}

func (p *LogEventPublisher) Publish(ctx context.Context, ev RecommendationEvent) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_type", ev.Type,
		"recommendation_id", ev.RecommendationID,
		"status", string(ev.Status),
	)
	observability.RecordEventPublish(ctx, ev.Type, "log", "success")
	return nil
}
