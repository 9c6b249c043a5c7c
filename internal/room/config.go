package room

import (
	"fmt"

	"github.com/gameon-rooms/carroom/internal/room/car"
	"github.com/gameon-rooms/carroom/internal/room/gateway"
	"github.com/gameon-rooms/carroom/internal/room/registry"
	"github.com/gameon-rooms/carroom/pkg/options"
)

type Config struct {
	HttpOptions     *options.HttpOptions
	RoomOptions     *options.RoomOptions
	CarOptions      *options.CarOptions
	MqttOptions     *options.MqttOptions
	RegistryOptions *options.RegistryOptions
}

func (cfg *Config) NewRoomServer() (*RoomServer, error) {
	dialer, err := cfg.newCarDialer()
	if err != nil {
		return nil, err
	}

	pipeline := car.NewPipeline(
		dialer,
		cfg.CarOptions.ConnectTimeout,
		cfg.CarOptions.RetryDelay,
		cfg.CarOptions.QueueCapacity,
	)

	fixtures := gateway.DefaultFixtures(cfg.RoomOptions.PictureFile)
	gw := gateway.New(fixtures, pipeline)
	pipeline.SetTelemetryHandler(gw.HandleTelemetry)
	pipeline.SetConnectivityHooks(gw.AnnounceCarUp, gw.AnnounceCarDown)

	var registrar *registry.Registrar
	if cfg.RegistryOptions.Enabled {
		registrar = registry.New(
			cfg.RegistryOptions.URL,
			cfg.RegistryOptions.CallbackURL,
			cfg.RegistryOptions.OwnerID,
			cfg.RegistryOptions.OwnerKey,
			cfg.RegistryOptions.Timeout,
			cfg.RegistryOptions.InsecureSkipVerify,
		)
	}

	return &RoomServer{
		httpOptions: cfg.HttpOptions,
		fixtures:    fixtures,
		pipeline:    pipeline,
		gateway:     gw,
		registrar:   registrar,
	}, nil
}

func (cfg *Config) newCarDialer() (car.Dialer, error) {
	switch cfg.CarOptions.Transport {
	case options.CarTransportWebsocket:
		return &car.WebsocketDialer{Endpoint: cfg.CarOptions.Endpoint}, nil
	case options.CarTransportMQTT:
		return &car.MqttDialer{
			Config:    cfg.MqttOptions.ToClientConfig(),
			TopicRoot: cfg.MqttOptions.TopicRoot,
			CarID:     cfg.MqttOptions.CarID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown car transport %q", cfg.CarOptions.Transport)
	}
}
