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

// ScoreHandler processes one score job. A returned error means the job
// failed; the record is still committed because the pipeline has already
// recorded the failure on the submission and redelivery would only repeat it.
type ScoreHandler func(ctx context.Context, payload domain.ScoreTaskPayload) error

// Consumer polls the score-jobs topic and dispatches each record to the
// handler. One consumer per worker process; the group balances partitions
// across workers.
type Consumer struct {
	client  *kgo.Client
	handler ScoreHandler
}

// NewConsumer constructs a Consumer in the given group.
func NewConsumer(brokers []string, group string, handler ScoreHandler) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.consumer: %w: no seed brokers", domain.ErrInvalidArgument)
	}
	if handler == nil {
		return nil, fmt.Errorf("op=redpanda.consumer: %w: nil handler", domain.ErrInvalidArgument)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(TopicScoreJobs),
		kgo.DisableAutoCommit(),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(kotel.NewTracer())).Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.consumer: %w", err)
	}
	if err := createTopicIfNotExists(context.Background(), client, TopicScoreJobs, 1, 1); err != nil {
		slog.Warn("topic ensure failed, continuing", slog.String("topic", TopicScoreJobs), slog.Any("error", err))
	}
	return &Consumer{client: client, handler: handler}, nil
}

// Run polls until ctx is cancelled. Records are committed after processing,
// success or failure: a job that errored has its outcome written on the
// submission record, so redelivery adds nothing.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("score consumer started", slog.String("topic", TopicScoreJobs))
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			slog.Info("score consumer stopping")
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})
		fetches.EachRecord(func(record *kgo.Record) {
			c.processRecord(ctx, record)
		})
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			slog.Error("offset commit failed", slog.Any("error", err))
		}
	}
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	var payload domain.ScoreTaskPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		// Poison record: log and move on, nothing downstream can use it.
		slog.Error("unparseable score job dropped",
			slog.Int64("offset", record.Offset),
			slog.Any("error", err))
		return
	}
	if payload.SubmissionID == "" {
		slog.Error("score job missing submission id", slog.Int64("offset", record.Offset))
		return
	}
	if err := c.handler(ctx, payload); err != nil {
		slog.Error("score job failed",
			slog.String("submission_id", payload.SubmissionID),
			slog.Any("error", err))
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
