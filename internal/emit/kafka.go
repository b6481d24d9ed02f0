package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/dpuwatch/dpuwatch/internal/core/config"
)

// KafkaEmitter publishes health events to a Kafka/Redpanda topic. Records are
// keyed by card id so per-card ordering is preserved across partitions.
type KafkaEmitter struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaEmitter connects to the brokers and verifies the connection.
func NewKafkaEmitter(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*KafkaEmitter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RetryTimeout(30 * time.Second),
		kgo.RetryBackoffFn(func(attempts int) time.Duration {
			return time.Duration(attempts) * time.Second
		}),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := checkConnection(ctx, client); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaEmitter{
		client: client,
		topic:  cfg.Topic,
		logger: logger.With("component", "kafka_emitter"),
	}, nil
}

// checkConnection verifies the brokers are reachable.
func checkConnection(ctx context.Context, client *kgo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := kmsg.MetadataRequest{
		Topics: []kmsg.MetadataRequestTopic{},
	}

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}

	metaResp := resp.(*kmsg.MetadataResponse)
	if len(metaResp.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers available")
	}
	return nil
}

// Emit publishes one event. Delivery is asynchronous; failures are logged, not
// returned, so a broker outage never stalls the monitor loop.
func (e *KafkaEmitter) Emit(ctx context.Context, event HealthEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: e.topic,
		Key:   []byte(event.CardID),
		Value: data,
	}

	e.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			e.logger.Error("failed to produce event",
				"card", event.CardID,
				"type", event.Type,
				"error", err)
		}
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (e *KafkaEmitter) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.client.Flush(ctx); err != nil {
		e.logger.Error("failed to flush kafka producer", "error", err)
	}
	e.client.Close()
}
