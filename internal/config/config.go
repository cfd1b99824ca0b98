// YAML config loader with CUE validation and environment overrides
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"journey-sim/internal/telemetry"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Position converts c to a telemetry position.
func (c Coordinate) Position() telemetry.Position {
	return telemetry.Position{Lat: c.Lat, Lon: c.Lon}
}

// Route describes the straight-line journey.
type Route struct {
	Origin      Coordinate `yaml:"origin"`
	Destination Coordinate `yaml:"destination"`
	Steps       int        `yaml:"steps"`
	Jitter      float64    `yaml:"jitter"`
}

// Clock bounds the simulated time advance per tick.
type Clock struct {
	StepMin time.Duration `yaml:"step_min"`
	StepMax time.Duration `yaml:"step_max"`
}

// Topics names the channel for each record kind.
type Topics struct {
	Vehicle string `yaml:"vehicle"`
	GPS     string `yaml:"gps"`
	Traffic string `yaml:"traffic"`
	Weather string `yaml:"weather"`
}

// For returns the channel records of kind are published to.
func (t Topics) For(kind telemetry.Kind) string {
	switch kind {
	case telemetry.KindVehicle:
		return t.Vehicle
	case telemetry.KindGPS:
		return t.GPS
	case telemetry.KindTraffic:
		return t.Traffic
	case telemetry.KindWeather:
		return t.Weather
	}
	return ""
}

// All returns the four channel names in emission order.
func (t Topics) All() []string {
	return []string{t.Vehicle, t.GPS, t.Weather, t.Traffic}
}

// Kafka configures the Kafka transport.
type Kafka struct {
	BootstrapServers  string        `yaml:"bootstrap_servers"`
	RequiredAcks      string        `yaml:"required_acks"`
	Compression       string        `yaml:"compression"`
	MaxAttempts       int           `yaml:"max_attempts"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	TopicPartitions   int           `yaml:"topic_partitions"`
	ReplicationFactor int           `yaml:"replication_factor"`
}

// Brokers splits BootstrapServers into individual addresses.
func (k Kafka) Brokers() []string {
	var out []string
	for _, b := range strings.Split(k.BootstrapServers, ",") {
		if s := strings.TrimSpace(b); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MQTT configures the MQTT transport.
type MQTT struct {
	BrokerURL      string        `yaml:"broker_url"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            byte          `yaml:"qos"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// JourneyConfig is the root configuration of a simulation run.
type JourneyConfig struct {
	DeviceID     string                   `yaml:"device_id"`
	TickInterval time.Duration            `yaml:"tick_interval"`
	Seed         int64                    `yaml:"seed"`
	MaxTicks     int                      `yaml:"max_ticks"`
	EmitArrival  bool                     `yaml:"emit_arrival"`
	CameraID     string                   `yaml:"camera_id"`
	Route        Route                    `yaml:"route"`
	Clock        Clock                    `yaml:"clock"`
	Vehicle      telemetry.VehicleProfile `yaml:"vehicle"`
	Topics       Topics                   `yaml:"topics"`
	Kafka        Kafka                    `yaml:"kafka"`
	MQTT         MQTT                     `yaml:"mqtt"`
}

// Default returns the London to Birmingham journey.
func Default() *JourneyConfig {
	return &JourneyConfig{
		DeviceID:     "Vehicle-CodeWith-123",
		TickInterval: 5 * time.Second,
		Seed:         42,
		CameraID:     telemetry.DefaultCameraID,
		Route: Route{
			Origin:      Coordinate{Lat: telemetry.London.Lat, Lon: telemetry.London.Lon},
			Destination: Coordinate{Lat: telemetry.Birmingham.Lat, Lon: telemetry.Birmingham.Lon},
			Steps:       telemetry.DefaultSteps,
			Jitter:      telemetry.DefaultJitter,
		},
		Clock: Clock{
			StepMin: telemetry.DefaultClockStepMin,
			StepMax: telemetry.DefaultClockStepMax,
		},
		Vehicle: telemetry.DefaultVehicleProfile(),
		Topics: Topics{
			Vehicle: "vehicle_data",
			GPS:     "gps_data",
			Traffic: "traffic_data",
			Weather: "weather_data",
		},
		Kafka: Kafka{
			BootstrapServers:  "localhost:9092",
			RequiredAcks:      "all",
			Compression:       "none",
			MaxAttempts:       3,
			WriteTimeout:      10 * time.Second,
			TopicPartitions:   1,
			ReplicationFactor: 1,
		},
		MQTT: MQTT{
			BrokerURL:      "tcp://localhost:1883",
			ClientID:       "journey-sim",
			QoS:            1,
			PublishTimeout: 10 * time.Second,
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at
// configPath, validated against the CUE schema at cueSchemaPath. An empty
// configPath yields the defaults; an empty schema path skips validation.
func Load(configPath, cueSchemaPath string) (*JourneyConfig, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	log.Printf("Loaded configuration from %s", configPath)

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables when set.
func (c *JourneyConfig) ApplyEnv() error {
	setString(&c.Kafka.BootstrapServers, "KAFKA_BOOTSTRAP_SERVERS")
	setString(&c.Topics.Vehicle, "VEHICLE_TOPIC")
	setString(&c.Topics.GPS, "GPS_TOPIC")
	setString(&c.Topics.Traffic, "TRAFFIC_TOPIC")
	setString(&c.Topics.Weather, "WEATHER_TOPIC")
	setString(&c.DeviceID, "DEVICE_ID")
	setString(&c.MQTT.BrokerURL, "MQTT_BROKER_URL")

	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_SEED: %w", err)
		}
		c.Seed = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate reports every inconsistent setting.
func (c *JourneyConfig) Validate() error {
	var errs []error
	if c.DeviceID == "" {
		errs = append(errs, errors.New("device_id must not be empty"))
	}
	if c.TickInterval < 0 {
		errs = append(errs, errors.New("tick_interval must not be negative"))
	}
	if c.MaxTicks < 0 {
		errs = append(errs, errors.New("max_ticks must not be negative"))
	}
	if c.Route.Steps <= 0 {
		errs = append(errs, errors.New("route.steps must be > 0"))
	}
	if c.Route.Jitter < 0 {
		errs = append(errs, errors.New("route.jitter must not be negative"))
	}
	if c.Clock.StepMin < time.Second || c.Clock.StepMax < c.Clock.StepMin {
		errs = append(errs, fmt.Errorf("clock step range [%s,%s] invalid", c.Clock.StepMin, c.Clock.StepMax))
	}
	for _, t := range c.Topics.All() {
		if t == "" {
			errs = append(errs, errors.New("every topic must be named"))
			break
		}
	}
	if len(c.Kafka.Brokers()) == 0 {
		errs = append(errs, errors.New("kafka.bootstrap_servers must not be empty"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos %d out of range 0..2", c.MQTT.QoS))
	}
	return errors.Join(errs...)
}
