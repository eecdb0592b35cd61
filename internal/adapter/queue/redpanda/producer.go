// Package redpanda carries score jobs between the intake API and the scoring
// worker over a Redpanda/Kafka topic. Delivery is at-least-once; the
// submission table's uniqueness constraint and the idempotent pipeline absorb
// redeliveries.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// TopicScoreJobs is the topic every score job travels on.
const TopicScoreJobs = "score-jobs"

// Producer implements domain.Queue over a franz-go client.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer constructs a Producer and ensures the topic exists.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.producer: %w: no seed brokers", domain.ErrInvalidArgument)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(kotel.NewTracer())).Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.producer: %w", err)
	}
	if err := createTopicIfNotExists(context.Background(), client, TopicScoreJobs, 1, 1); err != nil {
		slog.Warn("topic ensure failed, continuing", slog.String("topic", TopicScoreJobs), slog.Any("error", err))
	}
	return &Producer{client: client, topic: TopicScoreJobs}, nil
}

// EnqueueScore publishes one score job. The submission id keys the record so
// re-scores of the same submission stay ordered on one partition.
func (p *Producer) EnqueueScore(ctx domain.Context, payload domain.ScoreTaskPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.enqueue: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(payload.SubmissionID),
		Value: b,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return "", fmt.Errorf("op=redpanda.enqueue: %w", err)
	}
	slog.Info("score job enqueued",
		slog.String("submission_id", payload.SubmissionID),
		slog.String("topic", p.topic))
	return payload.SubmissionID, nil
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
