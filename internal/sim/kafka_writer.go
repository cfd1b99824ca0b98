// Writer publishing records to Kafka topics
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"journey-sim/internal/config"
	"journey-sim/internal/telemetry"
)

const kindHeader = "record-kind"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes each record to the topic named by its channel,
// keyed by the record identity. Writes are synchronous: Write returns once
// the broker has acknowledged the message or the delivery has failed.
type KafkaWriter struct {
	w   messageWriter
	log *slog.Logger
}

// NewKafkaWriter builds a producer for the configured bootstrap servers.
func NewKafkaWriter(cfg config.Kafka, log *slog.Logger) (*KafkaWriter, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no bootstrap servers configured")
	}
	acks, err := parseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}
	compression, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	kw := &KafkaWriter{log: log}
	kw.w = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		RequiredAcks:           acks,
		Compression:            compression,
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		Async:                  false,
		AllowAutoTopicCreation: true,
		Completion:             kw.deliveryReport,
		ErrorLogger:            kafka.LoggerFunc(kw.logError),
	}
	return kw, nil
}

// Write sends rec to the channel topic.
func (k *KafkaWriter) Write(ctx context.Context, channel string, rec telemetry.Record) error {
	msg, err := recordMessage(channel, rec)
	if err != nil {
		return err
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", channel, err)
	}
	return nil
}

// Close flushes pending messages and releases broker connections.
func (k *KafkaWriter) Close() error {
	return k.w.Close()
}

// deliveryReport runs once per produced batch with the broker outcome.
func (k *KafkaWriter) deliveryReport(msgs []kafka.Message, err error) {
	for _, m := range msgs {
		if err != nil {
			k.log.Warn("message delivery failed", "topic", m.Topic, "key", string(m.Key), "err", err)
			continue
		}
		k.log.Info("message delivered", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "key", string(m.Key))
	}
}

// logError receives the producer's internal errors, retries included.
func (k *KafkaWriter) logError(msg string, args ...interface{}) {
	k.log.Warn("kafka error", "detail", fmt.Sprintf(msg, args...))
}

func recordMessage(channel string, rec telemetry.Record) (kafka.Message, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s record: %w", rec.Kind(), err)
	}
	return kafka.Message{
		Topic: channel,
		Key:   []byte(rec.RecordID().String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: kindHeader, Value: []byte(rec.Kind())},
		},
	}, nil
}

func parseRequiredAcks(s string) (kafka.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "-1":
		return kafka.RequireAll, nil
	case "one", "1":
		return kafka.RequireOne, nil
	case "none", "0":
		return kafka.RequireNone, nil
	}
	return 0, fmt.Errorf("kafka: unknown required_acks %q", s)
}

func parseCompression(s string) (kafka.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("kafka: unknown compression %q", s)
}
