// Package analytics forwards pipeline events to an external
// observability collaborator over MQTT. The sink subscribes to the
// event bus and publishes each event as JSON to a single topic; because
// bus payloads already exclude raw user text, everything published here
// is safe to retain on the broker side.
package analytics

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/fairwaylabs/caddie/internal/config"
	"github.com/fairwaylabs/caddie/internal/events"
)

// Sink manages the MQTT connection and the bus-to-broker forwarding
// loop.
type Sink struct {
	cfg    config.MQTTConfig
	bus    *events.Bus
	logger *slog.Logger
}

// New creates a Sink but does not connect. Call [Sink.Run] to start.
func New(cfg config.MQTTConfig, bus *events.Bus, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{cfg: cfg, bus: bus, logger: logger}
}

// Run connects to the broker and forwards bus events until ctx is
// cancelled. Connection loss is retried in the background by the
// connection manager; events published while disconnected are dropped,
// matching the bus's lossy-observer semantics.
func (s *Sink) Run(ctx context.Context) error {
	brokerURL, err := url.Parse(s.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	clientID := s.cfg.ClientID
	if clientID == "" {
		clientID = "caddie"
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: s.cfg.Username,
		ConnectPassword: []byte(s.cfg.Password),
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			s.logger.Info("analytics connected to broker", "broker", s.cfg.Broker)
		},
		OnConnectError: func(err error) {
			s.logger.Warn("analytics connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	ch := s.bus.Subscribe(128)
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.publish(ctx, cm, ev)
		}
	}
}

func (s *Sink) publish(ctx context.Context, cm *autopaho.ConnectionManager, ev events.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("analytics marshal failed", "error", err)
		return
	}

	_, err = cm.Publish(ctx, &paho.Publish{
		Topic:   s.cfg.Topic,
		QoS:     0,
		Payload: payload,
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("analytics publish failed",
			"topic", s.cfg.Topic, "kind", ev.Kind, "error", err)
	}
}
