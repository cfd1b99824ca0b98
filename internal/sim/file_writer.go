package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"journey-sim/internal/telemetry"
)

// FileWriter appends published records to a JSONL log that ReplayLog can
// read back.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (or truncates) the log at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record log: %w", err)
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single record with its channel.
func (f *FileWriter) Write(_ context.Context, channel string, rec telemetry.Record) error {
	env, err := NewEnvelope(channel, rec)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(env)
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
