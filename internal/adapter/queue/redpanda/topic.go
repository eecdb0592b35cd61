package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// createTopicIfNotExists creates a topic via the Kafka admin API, treating
// TOPIC_ALREADY_EXISTS (error code 36) as success so every binary can run it
// at startup.
func createTopicIfNotExists(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000

	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("op=redpanda.create_topic: %w", err)
	}
	createResp, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("op=redpanda.create_topic: unexpected response type %T", resp)
	}
	for _, t := range createResp.Topics {
		if t.ErrorCode == 0 {
			slog.Info("topic created", slog.String("topic", t.Topic))
			continue
		}
		if t.ErrorCode == 36 {
			continue
		}
		msg := ""
		if t.ErrorMessage != nil {
			msg = *t.ErrorMessage
		}
		return fmt.Errorf("op=redpanda.create_topic: %s (code %d)", msg, t.ErrorCode)
	}
	return nil
}
