package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"journey-sim/internal/config"
	"journey-sim/internal/logging"
	"journey-sim/internal/sim"
	"journey-sim/internal/telemetry"
)

type countingCloser struct {
	sim.StdoutWriter
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestNewWriterStdout(t *testing.T) {
	w, cleanup, err := newWriter(context.Background(), config.Default(), transportStdout, "", logging.Discard())
	if err != nil {
		t.Fatalf("newWriter returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", w)
	}
}

func TestNewWriterColor(t *testing.T) {
	w, cleanup, err := newWriter(context.Background(), config.Default(), transportColor, "", logging.Discard())
	if err != nil {
		t.Fatalf("newWriter returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.ColorWriter); !ok {
		t.Fatalf("expected *sim.ColorWriter, got %T", w)
	}
}

func TestNewWriterKafka(t *testing.T) {
	w, cleanup, err := newWriter(context.Background(), config.Default(), transportKafka, "", logging.Discard())
	if err != nil {
		t.Fatalf("newWriter returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.KafkaWriter); !ok {
		t.Fatalf("expected *sim.KafkaWriter, got %T", w)
	}
}

func TestNewWriterUnknownTransport(t *testing.T) {
	if _, _, err := newWriter(context.Background(), config.Default(), "carrier-pigeon", "", logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestNewWriterLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	w, cleanup, err := newWriter(context.Background(), config.Default(), transportStdout, path, logging.Discard())
	if err != nil {
		t.Fatalf("newWriter returned error: %v", err)
	}
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	rec := telemetry.GPSRecord{ID: uuid.New(), DeviceID: "d1"}
	if err := w.Write(context.Background(), "gps_data", rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cleanup()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to be non-empty")
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	cmd := simulateCmd
	t.Cleanup(func() {
		for _, name := range []string{"tick", "seed", "device-id", "max-ticks"} {
			f := cmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	if err := cmd.Flags().Parse([]string{"--tick", "1s", "--seed", "9", "--device-id", "car-9", "--max-ticks", "3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.TickInterval.String() != "1s" || cfg.Seed != 9 || cfg.DeviceID != "car-9" || cfg.MaxTicks != 3 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestCloseFuncClosesOnce(t *testing.T) {
	w := &countingCloser{}
	cleanup := closeFunc(w, logging.Discard())
	cleanup()
	cleanup()
	if w.closed != 1 {
		t.Fatalf("closed %d times, want 1", w.closed)
	}
}

func TestFinishRunClosesWritersBeforeNotice(t *testing.T) {
	var out bytes.Buffer
	var printedBeforeClose bool
	cleanup := func() { printedBeforeClose = out.Len() > 0 }

	if err := finishRun(&out, context.Canceled, cleanup); err != nil {
		t.Fatalf("finishRun returned %v", err)
	}
	if printedBeforeClose {
		t.Fatalf("notice printed before writers were closed")
	}
	if out.String() != "simulation ended by user\n" {
		t.Fatalf("unexpected notice %q", out.String())
	}

	out.Reset()
	boom := errors.New("boom")
	if err := finishRun(&out, boom, func() {}); !errors.Is(err, boom) {
		t.Fatalf("finishRun() = %v, want wrapped boom", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}
