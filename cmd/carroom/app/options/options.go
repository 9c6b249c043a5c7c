package options

import (
	"errors"
	"strings"

	"github.com/gameon-rooms/carroom/internal/room"
	"github.com/gameon-rooms/carroom/pkg/app"
	"github.com/gameon-rooms/carroom/pkg/log"
	"github.com/gameon-rooms/carroom/pkg/options"
)

// RoomOptions aggregates every option group of the carroom binary.
type RoomOptions struct {
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	RoomOptions     *options.RoomOptions     `json:"room" mapstructure:"room"`
	CarOptions      *options.CarOptions      `json:"car" mapstructure:"car"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	RegistryOptions *options.RegistryOptions `json:"registry" mapstructure:"registry"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*RoomOptions)(nil)

func NewRoomOptions() *RoomOptions {
	return &RoomOptions{
		HttpOptions:     options.NewHttpOptions(),
		RoomOptions:     options.NewRoomOptions(),
		CarOptions:      options.NewCarOptions(),
		MqttOptions:     options.NewMqttOptions(),
		RegistryOptions: options.NewRegistryOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *RoomOptions) Flags() app.NamedFlagSets {
	fss := app.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.RoomOptions.AddFlags(fss.FlagSet("room"))
	o.CarOptions.AddFlags(fss.FlagSet("car"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.RegistryOptions.AddFlags(fss.FlagSet("registry"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *RoomOptions) Complete() error {
	return nil
}

func (o *RoomOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.RoomOptions.Validate()...)
	errs = append(errs, o.CarOptions.Validate()...)
	errs = append(errs, o.RegistryOptions.Validate()...)
	if o.CarOptions.Transport == options.CarTransportMQTT {
		errs = append(errs, o.MqttOptions.Validate()...)
	}
	errs = append(errs, o.Log.Validate()...)
	return aggregate(errs)
}

func (o *RoomOptions) Config() (*room.Config, error) {
	return &room.Config{
		HttpOptions:     o.HttpOptions,
		RoomOptions:     o.RoomOptions,
		CarOptions:      o.CarOptions,
		MqttOptions:     o.MqttOptions,
		RegistryOptions: o.RegistryOptions,
	}, nil
}

func aggregate(errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}
