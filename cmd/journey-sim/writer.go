package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"journey-sim/internal/config"
	"journey-sim/internal/sim"
)

const (
	transportKafka  = "kafka"
	transportMQTT   = "mqtt"
	transportStdout = "stdout"
	transportColor  = "color"
	transportTUI    = "tui"
)

// newWriter sets up the record writer for transport, teeing into a JSONL log
// when logFile is set. The returned cleanup closes every writer.
func newWriter(ctx context.Context, cfg *config.JourneyConfig, transport, logFile string, log *slog.Logger) (sim.RecordWriter, func(), error) {
	writer, err := baseWriter(ctx, cfg, transport, log)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return writer, closeFunc(writer, log), nil
	}

	fw, err := sim.NewFileWriter(logFile)
	if err != nil {
		closeFunc(writer, log)()
		return nil, nil, err
	}
	mw := sim.NewMultiWriter(writer, fw)
	return mw, closeFunc(mw, log), nil
}

// baseWriter chooses the underlying writer for transport.
func baseWriter(ctx context.Context, cfg *config.JourneyConfig, transport string, log *slog.Logger) (sim.RecordWriter, error) {
	switch transport {
	case transportKafka:
		return sim.NewKafkaWriter(cfg.Kafka, log)
	case transportMQTT:
		return sim.NewMQTTWriter(ctx, cfg.MQTT, log)
	case transportStdout:
		return sim.NewStdoutWriter(), nil
	case transportColor:
		return sim.NewColorWriter(), nil
	case transportTUI:
		return sim.NewTUIWriter(cfg), nil
	}
	return nil, fmt.Errorf("unknown transport %q", transport)
}

// closeFunc returns a cleanup that closes w at most once.
func closeFunc(w sim.RecordWriter, log *slog.Logger) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if c, ok := w.(io.Closer); ok {
				if err := c.Close(); err != nil {
					log.Warn("closing writer failed", "err", err)
				}
			}
		})
	}
}
