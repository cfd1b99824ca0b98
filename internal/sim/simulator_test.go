package sim

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"journey-sim/internal/config"
	"journey-sim/internal/logging"
	"journey-sim/internal/observability"
	"journey-sim/internal/telemetry"
)

type published struct {
	channel string
	rec     telemetry.Record
}

// MockWriter collects records for validation.
type MockWriter struct {
	mu      sync.Mutex
	records []published
	fail    map[string]bool
	ticks   []Status
}

func (w *MockWriter) Write(_ context.Context, channel string, rec telemetry.Record) error {
	if w.fail[channel] {
		return errors.New("broker unavailable")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, published{channel: channel, rec: rec})
	return nil
}

func (w *MockWriter) ObserveTick(st Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ticks = append(w.ticks, st)
}

func testConfig() *config.JourneyConfig {
	cfg := config.Default()
	cfg.TickInterval = 0
	cfg.Seed = 42
	return cfg
}

func quietContext() context.Context {
	return logging.NewContext(context.Background(), logging.Discard())
}

var testStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func arrivedAtBirmingham(p telemetry.Position) bool {
	return p.Lat >= telemetry.Birmingham.Lat && p.Lon <= telemetry.Birmingham.Lon
}

func TestSimulatorRunsToArrivalWithoutEmittingArrivalTick(t *testing.T) {
	w := &MockWriter{}
	s := NewSimulator(testConfig(), w, WithStartTime(testStart))

	if err := s.Run(quietContext()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	st := s.Status()
	if !st.Completed || st.Running {
		t.Fatalf("unexpected final status: %+v", st)
	}
	if st.Ticks < 95 || st.Ticks > 105 {
		t.Fatalf("journey took %d ticks, want about 100", st.Ticks)
	}
	if st.Emitted != st.Ticks-1 {
		t.Fatalf("emitted %d ticks out of %d, want arrival tick dropped", st.Emitted, st.Ticks)
	}
	if len(w.records) != 4*st.Emitted {
		t.Fatalf("got %d records, want %d", len(w.records), 4*st.Emitted)
	}
	if !arrivedAtBirmingham(st.Position) {
		t.Fatalf("final position %+v has not arrived", st.Position)
	}
	for _, p := range w.records {
		if v, ok := p.rec.(telemetry.VehicleRecord); ok && arrivedAtBirmingham(v.Location) {
			t.Fatalf("arrived position %+v was published", v.Location)
		}
	}
	if len(w.ticks) != st.Ticks {
		t.Fatalf("observer saw %d ticks, want %d", len(w.ticks), st.Ticks)
	}
}

func TestSimulatorEmitArrival(t *testing.T) {
	cfg := testConfig()
	cfg.EmitArrival = true
	w := &MockWriter{}
	s := NewSimulator(cfg, w, WithStartTime(testStart))
	if err := s.Run(quietContext()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st := s.Status()
	if st.Emitted != st.Ticks {
		t.Fatalf("emitted %d of %d ticks, want arrival tick included", st.Emitted, st.Ticks)
	}
	last, ok := w.records[len(w.records)-4].rec.(telemetry.VehicleRecord)
	if !ok {
		t.Fatalf("last tick does not start with a vehicle record")
	}
	if !arrivedAtBirmingham(last.Location) {
		t.Fatalf("last published position %+v has not arrived", last.Location)
	}
}

func TestSimulatorEmitsInChannelOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTicks = 3
	w := &MockWriter{}
	s := NewSimulator(cfg, w, WithStartTime(testStart))
	if err := s.Run(quietContext()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"vehicle_data", "gps_data", "weather_data", "traffic_data"}
	if len(w.records) != 12 {
		t.Fatalf("got %d records, want 12", len(w.records))
	}
	for i, p := range w.records {
		if p.channel != want[i%4] {
			t.Fatalf("record %d on %s, want %s", i, p.channel, want[i%4])
		}
		if cfg.Topics.For(p.rec.Kind()) != p.channel {
			t.Fatalf("record kind %s published on %s", p.rec.Kind(), p.channel)
		}
	}
}

func TestSimulatorRecordsAreCorrelatedPerTick(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTicks = 5
	w := &MockWriter{}
	s := NewSimulator(cfg, w, WithStartTime(testStart))
	if err := s.Run(quietContext()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	prev := testStart
	for i := 0; i < len(w.records); i += 4 {
		ts := recordTime(w.records[i].rec)
		for _, p := range w.records[i : i+4] {
			if !recordTime(p.rec).Equal(ts) {
				t.Fatalf("tick %d: timestamps differ", i/4)
			}
		}
		if d := ts.Sub(prev); d < 30*time.Second || d > 60*time.Second {
			t.Fatalf("tick %d: clock advanced %s", i/4, d)
		}
		prev = ts
	}
}

func TestPublishFailuresAreNonFatal(t *testing.T) {
	cfg := testConfig()
	w := &MockWriter{fail: map[string]bool{"gps_data": true}}
	s := NewSimulator(cfg, w, WithStartTime(testStart))
	var logs bytes.Buffer
	ctx := logging.NewContext(context.Background(), logging.NewWithWriter(&logs, "info", "text"))
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "publish failed") || !strings.Contains(out, "channel=gps_data") {
		t.Errorf("publish failure not logged with channel:\n%s", out)
	}
	if strings.Contains(out, "channel=vehicle_data") {
		t.Errorf("successful channel logged as failed:\n%s", out)
	}
	st := s.Status()
	if !st.Completed {
		t.Fatalf("journey did not complete: %+v", st)
	}
	if st.Failed["gps_data"] != st.Emitted {
		t.Errorf("gps failures = %d, want %d", st.Failed["gps_data"], st.Emitted)
	}
	for _, ch := range []string{"vehicle_data", "weather_data", "traffic_data"} {
		if st.Published[ch] != st.Emitted {
			t.Errorf("%s published = %d, want %d", ch, st.Published[ch], st.Emitted)
		}
	}
	if len(w.records) != 3*st.Emitted {
		t.Errorf("got %d records, want %d", len(w.records), 3*st.Emitted)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.TickInterval = time.Hour
	w := &MockWriter{}
	s := NewSimulator(cfg, w, WithStartTime(testStart))
	ctx, cancel := context.WithCancel(quietContext())
	s.sleep = func(ctx context.Context, d time.Duration) error {
		if d != time.Hour {
			t.Errorf("sleep interval = %s, want 1h", d)
		}
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if len(w.records) != 4 {
		t.Fatalf("got %d records, want one tick", len(w.records))
	}
	if s.Status().Completed {
		t.Fatalf("interrupted journey reported as completed")
	}
}

// cancellingWriter cancels the run on its first write, as Ctrl-C arriving
// while a tick is being published would.
type cancellingWriter struct {
	cancel context.CancelFunc
	writes int
}

func (w *cancellingWriter) Write(ctx context.Context, _ string, _ telemetry.Record) error {
	w.writes++
	w.cancel()
	return ctx.Err()
}

func TestInterruptDuringTickIsNotAFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewJourneyCollector(reg)
	if err != nil {
		t.Fatalf("NewJourneyCollector: %v", err)
	}
	var logs bytes.Buffer
	ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), logging.NewWithWriter(&logs, "debug", "text")))
	defer cancel()
	w := &cancellingWriter{cancel: cancel}
	s := NewSimulator(testConfig(), w, WithStartTime(testStart), WithMetrics(metrics))

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if w.writes != 1 {
		t.Errorf("writes = %d, want 1", w.writes)
	}
	st := s.Status()
	if len(st.Failed) != 0 {
		t.Errorf("interrupted publish counted as failure: %v", st.Failed)
	}
	if st.Emitted != 0 {
		t.Errorf("emitted = %d, want 0", st.Emitted)
	}
	if got := testutil.ToFloat64(metrics.Failed.WithLabelValues("vehicle_data")); got != 0 {
		t.Errorf("failed metric = %v, want 0", got)
	}
	out := logs.String()
	if strings.Contains(out, "publish failed") || strings.Contains(out, "level=ERROR") {
		t.Errorf("interrupt logged as an error:\n%s", out)
	}
	if !strings.Contains(out, "publish interrupted") {
		t.Errorf("interrupt not logged:\n%s", out)
	}
}

func TestRunHonoursMaxTicks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTicks = 7
	s := NewSimulator(cfg, &MockWriter{}, WithStartTime(testStart))
	if err := s.Run(quietContext()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := s.Status(); st.Ticks != 7 || st.Emitted != 7 || st.Completed {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	run := func() []telemetry.Position {
		cfg := testConfig()
		cfg.MaxTicks = 10
		w := &MockWriter{}
		s := NewSimulator(cfg, w, WithStartTime(testStart))
		if err := s.Run(quietContext()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		var out []telemetry.Position
		for _, p := range w.records {
			if v, ok := p.rec.(telemetry.VehicleRecord); ok {
				out = append(out, v.Location)
			}
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSimulatorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewJourneyCollector(reg)
	if err != nil {
		t.Fatalf("NewJourneyCollector: %v", err)
	}
	cfg := testConfig()
	cfg.MaxTicks = 4
	w := &MockWriter{fail: map[string]bool{"traffic_data": true}}
	s := NewSimulator(cfg, w, WithStartTime(testStart), WithMetrics(metrics))
	if err := s.Run(quietContext()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Ticks); got != 4 {
		t.Errorf("ticks = %v, want 4", got)
	}
	if got := testutil.ToFloat64(metrics.Published.WithLabelValues("vehicle_data")); got != 4 {
		t.Errorf("vehicle published = %v, want 4", got)
	}
	if got := testutil.ToFloat64(metrics.Failed.WithLabelValues("traffic_data")); got != 4 {
		t.Errorf("traffic failed = %v, want 4", got)
	}
	if got := testutil.ToFloat64(metrics.Latitude); got != s.Status().Position.Lat {
		t.Errorf("latitude gauge = %v, want %v", got, s.Status().Position.Lat)
	}
}
