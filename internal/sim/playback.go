package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ReplayLog re-publishes the records of a JSONL log to writer and returns
// how many were written. A speed >0 keeps the recorded gaps between
// simulated timestamps divided by speed; speed <= 0 replays without delay.
func ReplayLog(ctx context.Context, r io.Reader, writer RecordWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, fmt.Errorf("decode log entry %d: %w", n+1, err)
		}
		rec, err := env.Decode()
		if err != nil {
			return n, err
		}
		ts := recordTime(rec)
		if !prev.IsZero() && speed > 0 {
			diff := ts.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if err := sleepContext(ctx, diff); err != nil {
				return n, err
			}
		}
		if err := writer.Write(ctx, env.Channel, rec); err != nil {
			return n, err
		}
		n++
		prev = ts
	}
}

// ReplayLogFile opens a file and replays its records.
func ReplayLogFile(ctx context.Context, path string, writer RecordWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
