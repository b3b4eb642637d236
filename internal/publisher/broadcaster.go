package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// Broadcaster periodically drains the outbox and republishes pending
// records to a Kafka topic with a sync producer, marking them SENT then
// ACKED. Grounded on jobs/broadcaster/broadcaster.go; failure to publish
// leaves a record pending for the next tick rather than raising an
// error, since this path is best-effort, at-least-once fan-out and must
// never block matching or log writing (spec §4.7 [ADD]).
type Broadcaster struct {
	outbox   *Outbox
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger

	cancel context.CancelFunc
}

// NewBroadcaster dials brokers with a sync producer requiring acks from
// all in-sync replicas.
func NewBroadcaster(outbox *Outbox, brokers []string, topic string, log *slog.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{outbox: outbox, producer: producer, topic: topic, log: log}, nil
}

// Start launches the periodic drain loop in a background goroutine.
func (b *Broadcaster) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(rec ExitRecord) error {
		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("broadcaster publish failed, will retry", "seq", rec.Seq, "err", err)
			return err
		}
		return b.outbox.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Warn("broadcaster scan error", "err", err)
	}
}

// Stop cancels the drain loop.
func (b *Broadcaster) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Close closes the underlying producer.
func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
