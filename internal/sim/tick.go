package sim

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"journey-sim/internal/logging"
	"journey-sim/internal/telemetry"
)

// Run ticks the journey until the vehicle arrives, the tick limit is reached
// or ctx is done. It returns nil when the journey ends on its own and
// ctx.Err() when interrupted.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting journey",
		"device_id", s.gen.DeviceID,
		"tick_interval", s.tickInterval,
		"remaining_km", s.gen.Journey().RemainingKM(),
	)
	s.setRunning(true)
	defer s.setRunning(false)

	for {
		if err := ctx.Err(); err != nil {
			log.Info("stopping journey", "reason", err)
			return err
		}
		if s.Step(ctx) {
			return nil
		}
		if s.maxTicks > 0 && s.Status().Ticks >= s.maxTicks {
			log.Info("tick limit reached", "ticks", s.maxTicks)
			return nil
		}
		if err := s.sleep(ctx, s.tickInterval); err != nil {
			log.Info("stopping journey", "reason", err)
			return err
		}
	}
}

// Step computes one tick and publishes its records unless the vehicle has
// arrived. It reports whether the journey is complete.
func (s *Simulator) Step(ctx context.Context) bool {
	log := logging.FromContext(ctx)
	ctx, span := s.tracer.Start(ctx, "journey.tick")
	defer span.End()

	tick := s.gen.Tick()
	journey := s.gen.Journey()
	pos := tick.Vehicle.Location
	arrived := journey.Arrived(pos)
	remaining := journey.RemainingKM()

	s.metrics.ObserveTick(pos, remaining)
	s.mu.Lock()
	s.status.Ticks++
	s.status.Position = pos
	s.status.Clock = tick.Vehicle.Timestamp
	s.status.RemainingKM = remaining
	s.status.Completed = arrived
	ticks := s.status.Ticks
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("journey.tick", ticks),
		attribute.Float64("journey.lat", pos.Lat),
		attribute.Float64("journey.lon", pos.Lon),
		attribute.Bool("journey.arrived", arrived),
	)

	if arrived && !s.emitArrival {
		log.Info("journey completed", "ticks", ticks, "lat", pos.Lat, "lon", pos.Lon)
		s.notify()
		return true
	}

	for _, rec := range tick.Records() {
		if ctx.Err() != nil {
			log.Info("tick interrupted", "ticks", ticks)
			return false
		}
		s.publish(ctx, rec)
	}
	s.mu.Lock()
	s.status.Emitted++
	s.mu.Unlock()
	s.notify()

	if arrived {
		log.Info("journey completed", "ticks", ticks, "lat", pos.Lat, "lon", pos.Lon)
	}
	return arrived
}

// publish delivers one record. Failures are logged and counted; they never
// stop the journey. A write cut short by cancellation is not a failure.
func (s *Simulator) publish(ctx context.Context, rec telemetry.Record) {
	log := logging.FromContext(ctx)
	channel := s.topics.For(rec.Kind())
	ctx, span := s.tracer.Start(ctx, "journey.publish", trace.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("record.kind", string(rec.Kind())),
		attribute.String("record.id", rec.RecordID().String()),
	))
	defer span.End()

	start := time.Now()
	err := s.writer.Write(ctx, channel, rec)
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		span.SetAttributes(attribute.Bool("publish.interrupted", true))
		log.Info("publish interrupted", "channel", channel, "id", rec.RecordID())
		return
	}
	s.metrics.ObservePublish(channel, time.Since(start), err)

	s.mu.Lock()
	if err != nil {
		s.status.Failed[channel]++
	} else {
		s.status.Published[channel]++
	}
	s.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("publish failed", "channel", channel, "id", rec.RecordID(), "err", err)
	}
}

func (s *Simulator) notify() {
	if obs, ok := s.writer.(TickObserver); ok {
		obs.ObserveTick(s.Status())
	}
}
