package car

import (
	"context"
	"fmt"
	"sync"

	"github.com/gameon-rooms/carroom/pkg/log"
	"github.com/gameon-rooms/carroom/pkg/mqtt"
)

// MqttDialer produces car links over an MQTT broker. Commands go to
// {root}/command/{car}, telemetry arrives on {root}/telemetry/{car}.
type MqttDialer struct {
	Config    *mqtt.ClientConfig
	TopicRoot string
	CarID     string
}

var _ Dialer = (*MqttDialer)(nil)

func (d *MqttDialer) commandTopic() string {
	return fmt.Sprintf("%s/command/%s", d.TopicRoot, d.CarID)
}

func (d *MqttDialer) telemetryTopic() string {
	return fmt.Sprintf("%s/telemetry/%s", d.TopicRoot, d.CarID)
}

// Dial builds a fresh MQTT client, waits for the broker session and
// subscribes to the car's telemetry topic. Broker-side connection loss is
// surfaced through OnClosed, so an MQTT car behaves exactly like a websocket
// one as far as the connection manager is concerned.
func (d *MqttDialer) Dial(ctx context.Context, events LinkEvents) (Link, error) {
	l := &mqttLink{
		commandTopic: d.commandTopic(),
		events:       events,
		log:          log.WithName("carlink").WithValues("car", d.CarID),
	}

	cfg := *d.Config
	cfg.OnConnectionLost = func(err error) { l.fail(err) }

	client, err := mqtt.NewClient(&cfg)
	if err != nil {
		return nil, err
	}
	l.client = client

	if err := client.Start(ctx); err != nil {
		return nil, err
	}
	if err := client.AwaitConnection(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	onTelemetry := func(_ context.Context, _ string, payload []byte) {
		if events.OnTelemetry != nil {
			events.OnTelemetry(string(payload))
		}
	}
	if err := client.Subscribe(ctx, d.telemetryTopic(), 1, onTelemetry); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return l, nil
}

type mqttLink struct {
	client       mqtt.Client
	commandTopic string
	events       LinkEvents

	once sync.Once
	log  log.Logger
}

func (l *mqttLink) Send(ctx context.Context, frame []byte) error {
	if !l.client.IsConnected() {
		return ErrNotConnected
	}
	return l.client.Publish(ctx, l.commandTopic, 1, false, frame)
}

// Close ends the broker session without firing OnClosed; the loss callback
// the disconnect provokes is swallowed by the same once.
func (l *mqttLink) Close() error {
	l.once.Do(func() {
		l.client.Disconnect(context.Background())
	})
	return nil
}

// fail reports an unexpected session loss exactly once.
func (l *mqttLink) fail(err error) {
	l.once.Do(func() {
		l.log.Debug("Car MQTT session lost", "error", err)
		l.client.Disconnect(context.Background())
		if l.events.OnClosed != nil {
			l.events.OnClosed(err)
		}
	})
}
