// Writer implementation printing records to STDOUT
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"journey-sim/internal/telemetry"
)

// StdoutWriter prints one JSON envelope per record to STDOUT.
type StdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

// Write outputs a single record.
func (w *StdoutWriter) Write(_ context.Context, channel string, rec telemetry.Record) error {
	env, err := NewEnvelope(channel, rec)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
