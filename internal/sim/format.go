package sim

import (
	"fmt"
	"time"

	"journey-sim/internal/telemetry"
)

// recordTime returns the simulated timestamp carried by rec.
func recordTime(rec telemetry.Record) time.Time {
	switch r := rec.(type) {
	case telemetry.VehicleRecord:
		return r.Timestamp
	case telemetry.GPSRecord:
		return r.Timestamp
	case telemetry.TrafficCameraRecord:
		return r.Timestamp
	case telemetry.WeatherRecord:
		return r.Timestamp
	}
	return time.Time{}
}

// summarize renders the interesting fields of rec on one line.
func summarize(rec telemetry.Record) string {
	switch r := rec.(type) {
	case telemetry.VehicleRecord:
		return fmt.Sprintf("lat=%.5f lon=%.5f speed=%.1f dir=%s %s %s", r.Location.Lat, r.Location.Lon, r.Speed, r.Direction, r.Make, r.Model)
	case telemetry.GPSRecord:
		return fmt.Sprintf("speed=%.1f dir=%s type=%s", r.Speed, r.Direction, r.VehicleType)
	case telemetry.TrafficCameraRecord:
		return fmt.Sprintf("camera=%s lat=%.5f lon=%.5f", r.CameraID, r.Location.Lat, r.Location.Lon)
	case telemetry.WeatherRecord:
		return fmt.Sprintf("temp=%dC cond=%s precip=%.1f hum=%.1f wind=%.1f aqi=%.0f",
			r.Temperature, r.WeatherCondition, r.Precipitation, r.Humidity, r.WindSpeed, r.AirQualityIndex)
	}
	return ""
}
