package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"journey-sim/internal/telemetry"
)

// JourneyCollector bundles Prometheus metrics describing a running journey.
// A nil *JourneyCollector is valid and records nothing.
type JourneyCollector struct {
	gatherer prometheus.Gatherer

	Published       *prometheus.CounterVec
	Failed          *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	Ticks           prometheus.Counter

	Latitude    prometheus.Gauge
	Longitude   prometheus.Gauge
	RemainingKM prometheus.Gauge
}

// NewJourneyCollector registers journey metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewJourneyCollector(reg prometheus.Registerer) (*JourneyCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	published, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_records_published_total",
		Help: "Records acknowledged by the transport, labeled by channel.",
	}, []string{"channel"}), "journey_records_published_total")
	if err != nil {
		return nil, err
	}
	failed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_records_failed_total",
		Help: "Records the transport failed to deliver, labeled by channel.",
	}, []string{"channel"}), "journey_records_failed_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journey_publish_duration_seconds",
		Help:    "Time from publish call to delivery confirmation.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"channel"}), "journey_publish_duration_seconds")
	if err != nil {
		return nil, err
	}
	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journey_ticks_total",
		Help: "Simulation ticks computed, including the arrival tick.",
	}), "journey_ticks_total")
	if err != nil {
		return nil, err
	}
	lat, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journey_latitude",
		Help: "Latitude of the simulated vehicle after the last tick.",
	}), "journey_latitude")
	if err != nil {
		return nil, err
	}
	lon, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journey_longitude",
		Help: "Longitude of the simulated vehicle after the last tick.",
	}), "journey_longitude")
	if err != nil {
		return nil, err
	}
	remaining, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journey_remaining_km",
		Help: "Great-circle distance to the destination in kilometres.",
	}), "journey_remaining_km")
	if err != nil {
		return nil, err
	}

	return &JourneyCollector{
		gatherer:        gatherer,
		Published:       published,
		Failed:          failed,
		PublishDuration: durations,
		Ticks:           ticks,
		Latitude:        lat,
		Longitude:       lon,
		RemainingKM:     remaining,
	}, nil
}

// ObservePublish records the outcome of one publish call.
func (c *JourneyCollector) ObservePublish(channel string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.Failed.WithLabelValues(channel).Inc()
		return
	}
	c.Published.WithLabelValues(channel).Inc()
	c.PublishDuration.WithLabelValues(channel).Observe(elapsed.Seconds())
}

// ObserveTick records the vehicle position after a tick.
func (c *JourneyCollector) ObserveTick(pos telemetry.Position, remainingKM float64) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.Latitude.Set(pos.Lat)
	c.Longitude.Set(pos.Lon)
	c.RemainingKM.Set(remainingKM)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *JourneyCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
