package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

// Car link transports.
const (
	CarTransportWebsocket = "websocket"
	CarTransportMQTT      = "mqtt"
)

var _ IOptions = (*CarOptions)(nil)

// CarOptions contains configuration for the outbound car control link.
type CarOptions struct {
	// Transport selects the link implementation: 'websocket' or 'mqtt'.
	Transport string `json:"transport" mapstructure:"transport"`

	// Endpoint is the websocket URL of the car (used by the websocket transport).
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// ConnectTimeout bounds a single connect attempt to the car.
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`

	// RetryDelay is how long a blocked head-of-queue delivery waits before the
	// next availability check after the car drops mid-dispatch.
	RetryDelay time.Duration `json:"retry-delay" mapstructure:"retry-delay"`

	// QueueCapacity bounds the instruction queue. 0 means unbounded.
	QueueCapacity int `json:"queue-capacity" mapstructure:"queue-capacity"`
}

// NewCarOptions creates a CarOptions object with default parameters.
func NewCarOptions() *CarOptions {
	return &CarOptions{
		Transport:      CarTransportWebsocket,
		Endpoint:       "ws://127.0.0.1:3000/car",
		ConnectTimeout: 5 * time.Second,
		RetryDelay:     time.Second,
		QueueCapacity:  0,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *CarOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	switch o.Transport {
	case CarTransportWebsocket:
		u, err := url.Parse(o.Endpoint)
		if err != nil {
			errors = append(errors, fmt.Errorf("invalid car endpoint: %w", err))
		} else if u.Scheme != "ws" && u.Scheme != "wss" {
			errors = append(errors, fmt.Errorf("car endpoint must use ws:// or wss://, got %q", u.Scheme))
		}
	case CarTransportMQTT:
		// Broker settings live in MqttOptions.
	default:
		errors = append(errors, fmt.Errorf("unknown car transport %q", o.Transport))
	}

	if o.ConnectTimeout <= 0 {
		errors = append(errors, fmt.Errorf("car connect timeout must be positive"))
	}

	if o.QueueCapacity < 0 {
		errors = append(errors, fmt.Errorf("car queue capacity must not be negative"))
	}

	return errors
}

// AddFlags adds flags for the car link to the specified FlagSet.
func (o *CarOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Transport, "car.transport", o.Transport, "Car link transport ('websocket' or 'mqtt').")
	fs.StringVar(&o.Endpoint, "car.endpoint", o.Endpoint, "Websocket URL of the remote control car.")
	fs.DurationVar(&o.ConnectTimeout, "car.connect-timeout", o.ConnectTimeout, "Timeout for a single connect attempt to the car.")
	fs.DurationVar(&o.RetryDelay, "car.retry-delay", o.RetryDelay, "Delay before retrying a blocked delivery after the car drops.")
	fs.IntVar(&o.QueueCapacity, "car.queue-capacity", o.QueueCapacity, "Instruction queue capacity (0 = unbounded).")
}
