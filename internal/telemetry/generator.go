package telemetry

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	speedMin = 10.0
	speedMax = 60.0

	temperatureMin   = -5
	temperatureMax   = 30
	precipitationMax = 25.0
	humidityMax      = 100.0
	windSpeedMax     = 100.0
	airQualityMax    = 500.0

	snapshotPlaceholder = "Base64EncodedString"
)

// VehicleProfile holds the fixed descriptors stamped on every record.
type VehicleProfile struct {
	Make      string `yaml:"make"`
	Model     string `yaml:"model"`
	Year      string `yaml:"year"`
	FuelType  string `yaml:"fuel_type"`
	Direction string `yaml:"direction"`
	Type      string `yaml:"type"`
}

// DefaultVehicleProfile is the BMW X5 driving north-east.
func DefaultVehicleProfile() VehicleProfile {
	return VehicleProfile{
		Make:      "BMW",
		Model:     "X5",
		Year:      "2024",
		FuelType:  "Petrol",
		Direction: "North-East",
		Type:      "private",
	}
}

// DefaultCameraID is the camera reported on traffic records.
const DefaultCameraID = "CAM-05"

// Generator produces correlated records for one device along a journey.
type Generator struct {
	DeviceID string
	Vehicle  VehicleProfile
	CameraID string

	journey *Journey
	rand    *rand.Rand
	newID   func() uuid.UUID
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithVehicleProfile overrides the fixed vehicle descriptors.
func WithVehicleProfile(p VehicleProfile) GeneratorOption {
	return func(g *Generator) { g.Vehicle = p }
}

// WithCameraID overrides the traffic camera identifier.
func WithCameraID(id string) GeneratorOption {
	return func(g *Generator) {
		if id != "" {
			g.CameraID = id
		}
	}
}

// WithIDFunc replaces uuid.New as the record identity source.
func WithIDFunc(fn func() uuid.UUID) GeneratorOption {
	return func(g *Generator) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// NewGenerator creates a generator for deviceID driving journey. The random
// source r drives speed and weather draws.
func NewGenerator(deviceID string, journey *Journey, r *rand.Rand, opts ...GeneratorOption) *Generator {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Generator{
		DeviceID: deviceID,
		Vehicle:  DefaultVehicleProfile(),
		CameraID: DefaultCameraID,
		journey:  journey,
		rand:     r,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Journey returns the journey the generator advances.
func (g *Generator) Journey() *Journey { return g.journey }

// NextVehicle advances the journey by one tick and returns the vehicle record.
func (g *Generator) NextVehicle() VehicleRecord {
	loc := g.journey.AdvancePosition()
	ts := g.journey.AdvanceClock()
	return VehicleRecord{
		ID:        g.newID(),
		DeviceID:  g.DeviceID,
		Timestamp: ts,
		Location:  loc,
		Speed:     g.uniform(speedMin, speedMax),
		Direction: g.Vehicle.Direction,
		Make:      g.Vehicle.Make,
		Model:     g.Vehicle.Model,
		Year:      g.Vehicle.Year,
		FuelType:  g.Vehicle.FuelType,
	}
}

// GPS builds the GPS fix matching v.
func (g *Generator) GPS(v VehicleRecord) GPSRecord {
	return GPSRecord{
		ID:          g.newID(),
		DeviceID:    v.DeviceID,
		Timestamp:   v.Timestamp,
		Speed:       v.Speed,
		Direction:   g.Vehicle.Direction,
		VehicleType: g.Vehicle.Type,
	}
}

// TrafficCamera builds the camera capture matching v.
func (g *Generator) TrafficCamera(v VehicleRecord) TrafficCameraRecord {
	return TrafficCameraRecord{
		ID:        g.newID(),
		DeviceID:  v.DeviceID,
		Timestamp: v.Timestamp,
		Location:  v.Location,
		CameraID:  g.CameraID,
		Snapshot:  snapshotPlaceholder,
	}
}

// Weather draws conditions at v's location and time.
func (g *Generator) Weather(v VehicleRecord) WeatherRecord {
	return WeatherRecord{
		ID:               g.newID(),
		DeviceID:         v.DeviceID,
		Location:         v.Location,
		Timestamp:        v.Timestamp,
		Temperature:      temperatureMin + g.rand.Intn(temperatureMax-temperatureMin+1),
		WeatherCondition: WeatherConditions[g.rand.Intn(len(WeatherConditions))],
		Precipitation:    g.uniform(0, precipitationMax),
		Humidity:         g.uniform(0, humidityMax),
		WindSpeed:        g.uniform(0, windSpeedMax),
		AirQualityIndex:  g.uniform(0, airQualityMax),
	}
}

// Tick produces one correlated set of records.
func (g *Generator) Tick() TickRecords {
	v := g.NextVehicle()
	return TickRecords{
		Vehicle: v,
		GPS:     g.GPS(v),
		Traffic: g.TrafficCamera(v),
		Weather: g.Weather(v),
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}
