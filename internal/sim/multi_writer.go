package sim

import (
	"context"
	"errors"
	"io"

	"journey-sim/internal/telemetry"
)

// MultiWriter fans records out to multiple writers.
type MultiWriter struct {
	writers []RecordWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...RecordWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends rec to every writer. A failing writer does not keep the
// record from the others; all failures are returned together.
func (mw *MultiWriter) Write(ctx context.Context, channel string, rec telemetry.Record) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(ctx, channel, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObserveTick forwards journey progress to writers that want it.
func (mw *MultiWriter) ObserveTick(st Status) {
	for _, w := range mw.writers {
		if obs, ok := w.(TickObserver); ok {
			obs.ObserveTick(st)
		}
	}
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
