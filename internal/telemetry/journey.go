package telemetry

import (
	"math"
	"math/rand"
	"time"
)

// Default journey parameters.
const (
	DefaultSteps        = 100
	DefaultJitter       = 0.0005
	DefaultClockStepMin = 30 * time.Second
	DefaultClockStepMax = 60 * time.Second
)

var (
	London     = Position{Lat: 51.509865, Lon: -0.118092}
	Birmingham = Position{Lat: 52.4869, Lon: -1.8905}
)

// Route is a straight line between two coordinates travelled in Steps ticks.
type Route struct {
	Origin      Position
	Destination Position
	Steps       int
}

// Step returns the fixed per-axis increment applied each tick.
func (r Route) Step() Position {
	steps := r.Steps
	if steps <= 0 {
		steps = DefaultSteps
	}
	return Position{
		Lat: (r.Destination.Lat - r.Origin.Lat) / float64(steps),
		Lon: (r.Destination.Lon - r.Origin.Lon) / float64(steps),
	}
}

// Arrived reports whether pos has reached or passed the destination on both
// axes, in the direction of travel. For London to Birmingham this reads as
// lat >= dest.Lat && lon <= dest.Lon.
func (r Route) Arrived(pos Position) bool {
	return reached(pos.Lat, r.Origin.Lat, r.Destination.Lat) &&
		reached(pos.Lon, r.Origin.Lon, r.Destination.Lon)
}

func reached(v, from, to float64) bool {
	if to >= from {
		return v >= to
	}
	return v <= to
}

// Journey is the mutable clock and position of one simulated vehicle.
// It is not safe for concurrent use.
type Journey struct {
	route   Route
	step    Position
	pos     Position
	clock   time.Time
	jitter  float64
	minStep int
	maxStep int
	rand    *rand.Rand
}

// JourneyOption customises a Journey.
type JourneyOption func(*Journey)

// WithJitter sets the per-axis jitter bound in degrees. Zero disables jitter.
func WithJitter(j float64) JourneyOption {
	return func(jr *Journey) {
		if j >= 0 {
			jr.jitter = j
		}
	}
}

// WithClockStep sets the inclusive range the clock advances by per tick.
// Durations are truncated to whole seconds.
func WithClockStep(min, max time.Duration) JourneyOption {
	return func(jr *Journey) {
		lo, hi := int(min/time.Second), int(max/time.Second)
		if lo <= 0 || hi < lo {
			return
		}
		jr.minStep, jr.maxStep = lo, hi
	}
}

// NewJourney starts a journey at route.Origin with the clock at start.
func NewJourney(route Route, start time.Time, r *rand.Rand, opts ...JourneyOption) *Journey {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	j := &Journey{
		route:   route,
		step:    route.Step(),
		pos:     route.Origin,
		clock:   start,
		jitter:  DefaultJitter,
		minStep: int(DefaultClockStepMin / time.Second),
		maxStep: int(DefaultClockStepMax / time.Second),
		rand:    r,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// AdvanceClock moves the clock forward by a whole number of seconds drawn
// uniformly from the configured range and returns the new time.
func (j *Journey) AdvanceClock() time.Time {
	secs := j.minStep + j.rand.Intn(j.maxStep-j.minStep+1)
	j.clock = j.clock.Add(time.Duration(secs) * time.Second)
	return j.clock
}

// AdvancePosition applies the route step plus uniform jitter on each axis and
// returns the new position.
func (j *Journey) AdvancePosition() Position {
	j.pos.Lat += j.step.Lat
	j.pos.Lon += j.step.Lon
	if j.jitter > 0 {
		j.pos.Lat += (j.rand.Float64()*2 - 1) * j.jitter
		j.pos.Lon += (j.rand.Float64()*2 - 1) * j.jitter
	}
	return j.pos
}

// Arrived reports whether pos satisfies the route's termination check.
func (j *Journey) Arrived(pos Position) bool {
	return j.route.Arrived(pos)
}

func (j *Journey) Position() Position { return j.pos }
func (j *Journey) Clock() time.Time   { return j.clock }
func (j *Journey) Route() Route       { return j.route }

// RemainingKM is the great-circle distance from the current position to the
// destination.
func (j *Journey) RemainingKM() float64 {
	return DistanceKM(j.pos, j.route.Destination)
}

// DistanceKM calculates the haversine distance between two positions.
func DistanceKM(a, b Position) float64 {
	const earthRadiusKM = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKM * c
}
