// Simulator driving one vehicle from origin to destination
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"journey-sim/internal/config"
	"journey-sim/internal/observability"
	"journey-sim/internal/telemetry"

	"github.com/google/uuid"
)

// Status is a point-in-time view of a journey.
type Status struct {
	DeviceID    string             `json:"device_id"`
	Running     bool               `json:"running"`
	Completed   bool               `json:"completed"`
	Ticks       int                `json:"ticks"`
	Emitted     int                `json:"ticks_emitted"`
	Position    telemetry.Position `json:"position"`
	Clock       time.Time          `json:"clock"`
	RemainingKM float64            `json:"remaining_km"`
	Published   map[string]int     `json:"published"`
	Failed      map[string]int     `json:"failed"`
}

// Simulator ticks a journey and publishes each tick's records.
type Simulator struct {
	gen          *telemetry.Generator
	writer       RecordWriter
	topics       config.Topics
	tickInterval time.Duration
	maxTicks     int
	emitArrival  bool
	metrics      *observability.JourneyCollector
	tracer       trace.Tracer
	sleep        func(context.Context, time.Duration) error

	mu     sync.Mutex
	status Status
}

// Option customises a Simulator.
type Option func(*simOptions)

type simOptions struct {
	start   time.Time
	rand    *rand.Rand
	idFunc  func() uuid.UUID
	metrics *observability.JourneyCollector
	tracer  trace.Tracer
}

// WithStartTime sets the initial simulation clock. Defaults to now.
func WithStartTime(t time.Time) Option {
	return func(o *simOptions) { o.start = t }
}

// WithRand overrides the random source otherwise seeded from the config.
func WithRand(r *rand.Rand) Option {
	return func(o *simOptions) { o.rand = r }
}

// WithIDFunc overrides record identity generation.
func WithIDFunc(fn func() uuid.UUID) Option {
	return func(o *simOptions) { o.idFunc = fn }
}

// WithMetrics records tick and publish outcomes in c.
func WithMetrics(c *observability.JourneyCollector) Option {
	return func(o *simOptions) { o.metrics = c }
}

// WithTracer overrides the tracer used for tick and publish spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *simOptions) { o.tracer = t }
}

// NewSimulator builds the journey described by cfg. A zero seed draws the
// random source from the wall clock.
func NewSimulator(cfg *config.JourneyConfig, writer RecordWriter, opts ...Option) *Simulator {
	o := simOptions{start: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rand == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.rand = rand.New(rand.NewSource(seed))
	}
	if o.tracer == nil {
		o.tracer = observability.Tracer()
	}

	route := telemetry.Route{
		Origin:      cfg.Route.Origin.Position(),
		Destination: cfg.Route.Destination.Position(),
		Steps:       cfg.Route.Steps,
	}
	journey := telemetry.NewJourney(route, o.start, o.rand,
		telemetry.WithJitter(cfg.Route.Jitter),
		telemetry.WithClockStep(cfg.Clock.StepMin, cfg.Clock.StepMax),
	)
	genOpts := []telemetry.GeneratorOption{
		telemetry.WithVehicleProfile(cfg.Vehicle),
		telemetry.WithCameraID(cfg.CameraID),
	}
	if o.idFunc != nil {
		genOpts = append(genOpts, telemetry.WithIDFunc(o.idFunc))
	}

	return &Simulator{
		gen:          telemetry.NewGenerator(cfg.DeviceID, journey, o.rand, genOpts...),
		writer:       writer,
		topics:       cfg.Topics,
		tickInterval: cfg.TickInterval,
		maxTicks:     cfg.MaxTicks,
		emitArrival:  cfg.EmitArrival,
		metrics:      o.metrics,
		tracer:       o.tracer,
		sleep:        sleepContext,
		status: Status{
			DeviceID:    cfg.DeviceID,
			Position:    journey.Position(),
			Clock:       journey.Clock(),
			RemainingKM: journey.RemainingKM(),
			Published:   make(map[string]int),
			Failed:      make(map[string]int),
		},
	}
}

// Status returns a snapshot of the journey progress.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Published = copyCounts(s.status.Published)
	st.Failed = copyCounts(s.status.Failed)
	return st
}

func (s *Simulator) setRunning(running bool) {
	s.mu.Lock()
	s.status.Running = running
	s.mu.Unlock()
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
