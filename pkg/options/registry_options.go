package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RegistryOptions)(nil)

// RegistryOptions configures the one-shot room registration with the map
// directory service at startup.
type RegistryOptions struct {
	// Enabled gates the registration call entirely.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// URL is the map directory registration endpoint.
	URL string `json:"url" mapstructure:"url"`

	// CallbackURL is the websocket address the directory should hand to
	// players so they can reach this room.
	CallbackURL string `json:"callback-url" mapstructure:"callback-url"`

	// OwnerID and OwnerKey identify and sign for the room owner account.
	OwnerID  string `json:"owner-id" mapstructure:"owner-id"`
	OwnerKey string `json:"owner-key" mapstructure:"owner-key"`

	// Timeout bounds the registration HTTP calls.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// InsecureSkipVerify disables TLS verification for self-signed directory
	// certificates. Testing only.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

// NewRegistryOptions creates a RegistryOptions object with default parameters.
func NewRegistryOptions() *RegistryOptions {
	return &RegistryOptions{
		Enabled: false,
		Timeout: 15 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RegistryOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errors := []error{}

	if _, err := url.Parse(o.URL); err != nil || o.URL == "" {
		errors = append(errors, fmt.Errorf("registry url is required when registration is enabled"))
	}
	if o.CallbackURL == "" {
		errors = append(errors, fmt.Errorf("registry callback url is required when registration is enabled"))
	}
	if o.OwnerID == "" || o.OwnerKey == "" {
		errors = append(errors, fmt.Errorf("registry owner id and key are required when registration is enabled"))
	}

	return errors
}

// AddFlags adds flags for room registration to the specified FlagSet.
func (o *RegistryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "registry.enabled", o.Enabled, "Register the room with the map directory at startup.")
	fs.StringVar(&o.URL, "registry.url", o.URL, "Map directory registration endpoint.")
	fs.StringVar(&o.CallbackURL, "registry.callback-url", o.CallbackURL, "Websocket URL players use to reach this room.")
	fs.StringVar(&o.OwnerID, "registry.owner-id", o.OwnerID, "Room owner account id.")
	fs.StringVar(&o.OwnerKey, "registry.owner-key", o.OwnerKey, "Room owner signing key.")
	fs.DurationVar(&o.Timeout, "registry.timeout", o.Timeout, "Timeout for the registration HTTP calls.")
	fs.BoolVar(&o.InsecureSkipVerify, "registry.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips TLS certificate verification for the directory.")
}
