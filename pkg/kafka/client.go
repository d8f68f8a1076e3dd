package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

// Ride activity topics.
const (
	TopicRideCreated = "ride.created"
	TopicRideJoined  = "ride.joined"
	TopicRideLeft    = "ride.left"
	TopicRideDeleted = "ride.deleted"
)

// Topics lists every topic the service writes to.
var Topics = []string{TopicRideCreated, TopicRideJoined, TopicRideLeft, TopicRideDeleted}

// Client wraps Kafka operations. Writes are asynchronous; delivery errors
// are logged from the completion callback.
type Client struct {
	brokers []string
	writer  *kafkago.Writer
	log     *zap.Logger
}

// NewClient returns a Client for the given brokers.
func NewClient(brokers []string) *Client {
	log := logger.Named("kafka")
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(msgs []kafkago.Message, err error) {
			if err != nil {
				log.Warn("event delivery failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return &Client{brokers: brokers, writer: w, log: log}
}

// EnsureTopics creates topics if they don't already exist, retrying while the broker comes up.
func (c *Client) EnsureTopics(ctx context.Context, attempts int, topics ...string) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Warn("kafka not ready", zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		_ = conn.Close()
		if err != nil {
			c.log.Info("topic creation returned (may already exist)", zap.Error(err))
		}
		c.log.Info("kafka topics ensured", zap.Strings("topics", topics))
		return nil
	}
	return fmt.Errorf("kafka: could not connect after %d attempts", attempts)
}

// Publish queues a JSON-serialised message on topic.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
}

// Close flushes pending writes.
func (c *Client) Close() error { return c.writer.Close() }
