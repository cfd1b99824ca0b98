package sim

import (
	"context"
	"encoding/json"
	"fmt"

	"journey-sim/internal/telemetry"
)

// RecordWriter delivers one record to one named channel. Implementations
// block until the record is confirmed or has failed.
type RecordWriter interface {
	Write(ctx context.Context, channel string, rec telemetry.Record) error
}

// TickObserver is implemented by writers that want journey progress after
// every tick, such as the terminal dashboard.
type TickObserver interface {
	ObserveTick(Status)
}

// Envelope is the line format of the JSONL log and the stdout writer. It
// keeps the channel and kind next to the record so a log can be replayed.
type Envelope struct {
	Channel string          `json:"channel"`
	Kind    telemetry.Kind  `json:"kind"`
	Key     string          `json:"key"`
	Record  json.RawMessage `json:"record"`
}

// NewEnvelope wraps rec for channel.
func NewEnvelope(channel string, rec telemetry.Record) (Envelope, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s record: %w", rec.Kind(), err)
	}
	return Envelope{
		Channel: channel,
		Kind:    rec.Kind(),
		Key:     rec.RecordID().String(),
		Record:  raw,
	}, nil
}

// Decode rebuilds the wrapped record.
func (e Envelope) Decode() (telemetry.Record, error) {
	return telemetry.DecodeRecord(e.Kind, e.Record)
}
