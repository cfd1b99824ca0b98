package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"journey-sim/internal/config"
)

// EnsureTopics creates any of topics missing on the cluster.
func EnsureTopics(ctx context.Context, cfg config.Kafka, topics []string, log *slog.Logger) error {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no bootstrap servers configured")
	}
	if log == nil {
		log = slog.Default()
	}
	bootstrap := brokers[0]
	log.Info("ensuring kafka topics", "bootstrap", bootstrap, "topics", topics)

	conn, err := kafka.DialContext(ctx, "tcp", bootstrap)
	if err != nil {
		return fmt.Errorf("dial %s: %w", bootstrap, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", ctrlAddr, err)
	}
	defer ctrlConn.Close()

	partitions := cfg.TopicPartitions
	if partitions <= 0 {
		partitions = 1
	}
	rf := cfg.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}

	var missing []kafka.TopicConfig
	for _, topic := range topics {
		parts, err := conn.ReadPartitions(topic)
		if err == nil && len(parts) > 0 {
			log.Debug("kafka topic exists", "topic", topic)
			continue
		}
		log.Info("creating kafka topic", "topic", topic, "partitions", partitions, "replication_factor", rf)
		missing = append(missing, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: rf,
		})
	}
	if len(missing) == 0 {
		return nil
	}
	if err := ctrlConn.CreateTopics(missing...); err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	return nil
}
