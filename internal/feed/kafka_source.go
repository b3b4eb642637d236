package feed

import (
	"context"
	"fmt"

	"clob/internal/wire"
	kafka "github.com/segmentio/kafka-go"
)

// KafkaSource reads the same fixed-size command record format from a
// Kafka topic's message values, one record per message. Grounded on the
// teacher's infra/kafka/producer.go writer-side conventions, mirrored
// for consumption (spec §4.7 [ADD]).
type KafkaSource struct {
	reader *kafka.Reader
}

// KafkaConfig names the broker set and topic to consume.
type KafkaConfig struct {
	Brokers   []string
	Topic     string
	Partition int
	GroupID   string
}

// OpenKafkaSource dials brokers and begins consuming topic. If GroupID is
// set, consumer-group offset management is used; otherwise the reader
// starts from the topic's earliest offset on the given partition.
func OpenKafkaSource(cfg KafkaConfig) *KafkaSource {
	rcfg := kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	}
	if cfg.GroupID != "" {
		rcfg.GroupID = cfg.GroupID
	} else {
		rcfg.Partition = cfg.Partition
	}
	return &KafkaSource{reader: kafka.NewReader(rcfg)}
}

// Next blocks until the next message arrives, decodes its value as a
// command record, and returns it. Never returns ok=false on its own —
// the feed is treated as unbounded; ctx cancellation is the only way to
// stop it.
func (s *KafkaSource) Next(ctx context.Context) (wire.Command, bool, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return wire.Command{}, false, err
	}
	if len(msg.Value) < wire.CommandSize {
		return wire.Command{}, false, fmt.Errorf("feed: kafka message too short for a command record (%d bytes)", len(msg.Value))
	}
	cmd, err := wire.DecodeCommand(msg.Value)
	if err != nil {
		return wire.Command{}, false, err
	}
	return cmd, true, nil
}

// Close releases the underlying reader's connections.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
