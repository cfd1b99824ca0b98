// Vehicle telemetry record types published on the journey channels
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which channel a record belongs to.
type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindGPS     Kind = "gps"
	KindTraffic Kind = "traffic"
	KindWeather Kind = "weather"
)

// Kinds lists every record kind in emission order.
var Kinds = []Kind{KindVehicle, KindGPS, KindWeather, KindTraffic}

// Record is implemented by every record emitted during a tick.
type Record interface {
	RecordID() uuid.UUID
	Kind() Kind
}

// Position holds latitude and longitude in decimal degrees.
// It is encoded as a [lat, lon] pair.
type Position struct {
	Lat float64
	Lon float64
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

func (p *Position) UnmarshalJSON(b []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("decode position: %w", err)
	}
	p.Lat, p.Lon = pair[0], pair[1]
	return nil
}

// VehicleRecord describes the vehicle at one tick.
type VehicleRecord struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Location  Position  `json:"location"`
	Speed     float64   `json:"speed"`
	Direction string    `json:"direction"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      string    `json:"year"`
	FuelType  string    `json:"fueltype"`
}

func (r VehicleRecord) RecordID() uuid.UUID { return r.ID }
func (VehicleRecord) Kind() Kind            { return KindVehicle }

// GPSRecord mirrors the vehicle's speed and heading as a GPS fix.
type GPSRecord struct {
	ID          uuid.UUID `json:"id"`
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Speed       float64   `json:"speed"`
	Direction   string    `json:"direction"`
	VehicleType string    `json:"vehicle_type"`
}

func (r GPSRecord) RecordID() uuid.UUID { return r.ID }
func (GPSRecord) Kind() Kind            { return KindGPS }

// TrafficCameraRecord is a roadside camera capture of the vehicle.
type TrafficCameraRecord struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Location  Position  `json:"location"`
	CameraID  string    `json:"camera_id"`
	Snapshot  string    `json:"snapshot"`
}

func (r TrafficCameraRecord) RecordID() uuid.UUID { return r.ID }
func (TrafficCameraRecord) Kind() Kind            { return KindTraffic }

// WeatherRecord reports conditions at the vehicle's location.
type WeatherRecord struct {
	ID               uuid.UUID `json:"id"`
	DeviceID         string    `json:"device_id"`
	Location         Position  `json:"location"`
	Timestamp        time.Time `json:"timestamp"`
	Temperature      int       `json:"temperature"`
	WeatherCondition string    `json:"weatherCondition"`
	Precipitation    float64   `json:"precipitation"`
	Humidity         float64   `json:"humidity"`
	WindSpeed        float64   `json:"windSpeed"`
	AirQualityIndex  float64   `json:"airQualityIndex"`
}

func (r WeatherRecord) RecordID() uuid.UUID { return r.ID }
func (WeatherRecord) Kind() Kind            { return KindWeather }

// Weather conditions drawn for WeatherRecord.
const (
	ConditionSunny  = "Sunny"
	ConditionCloudy = "Cloudy"
	ConditionRainy  = "Rainy"
)

// WeatherConditions is the set a WeatherRecord condition is drawn from.
var WeatherConditions = []string{ConditionSunny, ConditionCloudy, ConditionRainy}

// TickRecords is the correlated set of records produced by one tick.
type TickRecords struct {
	Vehicle VehicleRecord
	GPS     GPSRecord
	Traffic TrafficCameraRecord
	Weather WeatherRecord
}

// Records returns the tick's records in emission order.
func (t TickRecords) Records() []Record {
	return []Record{t.Vehicle, t.GPS, t.Weather, t.Traffic}
}

// DecodeRecord rebuilds a record of the given kind from its JSON encoding.
func DecodeRecord(kind Kind, raw []byte) (Record, error) {
	var (
		rec Record
		err error
	)
	switch kind {
	case KindVehicle:
		var r VehicleRecord
		err = json.Unmarshal(raw, &r)
		rec = r
	case KindGPS:
		var r GPSRecord
		err = json.Unmarshal(raw, &r)
		rec = r
	case KindTraffic:
		var r TrafficCameraRecord
		err = json.Unmarshal(raw, &r)
		rec = r
	case KindWeather:
		var r WeatherRecord
		err = json.Unmarshal(raw, &r)
		rec = r
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return rec, nil
}
