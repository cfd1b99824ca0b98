package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"journey-sim/internal/config"
	"journey-sim/internal/telemetry"
)

// MQTTWriter publishes records to MQTT topics named by their channel.
type MQTTWriter struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	log     *slog.Logger
}

// NewMQTTWriter connects to the configured broker.
func NewMQTTWriter(ctx context.Context, cfg config.MQTT, log *slog.Logger) (*MQTTWriter, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(mqtt.Client) { log.Info("connected to mqtt broker", "broker", cfg.BrokerURL) }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) { log.Warn("mqtt connection lost", "err", err) }

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), cfg.PublishTimeout); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL, err)
	}
	return newMQTTWriter(client, cfg, log), nil
}

func newMQTTWriter(client mqtt.Client, cfg config.MQTT, log *slog.Logger) *MQTTWriter {
	return &MQTTWriter{client: client, qos: cfg.QoS, timeout: cfg.PublishTimeout, log: log}
}

// Write publishes rec and waits for the broker to confirm it.
func (m *MQTTWriter) Write(ctx context.Context, channel string, rec telemetry.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", rec.Kind(), err)
	}
	if err := waitToken(ctx, m.client.Publish(channel, m.qos, false, payload), m.timeout); err != nil {
		m.log.Warn("message delivery failed", "topic", channel, "key", rec.RecordID(), "err", err)
		return fmt.Errorf("mqtt publish %s: %w", channel, err)
	}
	m.log.Debug("message delivered", "topic", channel, "key", rec.RecordID(), "qos", m.qos)
	return nil
}

// Close disconnects from the broker.
func (m *MQTTWriter) Close() error {
	m.client.Disconnect(250)
	return nil
}

func waitToken(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	select {
	case <-tok.Done():
		return tok.Error()
	case <-expire:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
