package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*RoomOptions)(nil)

// RoomOptions contains configuration for the room's player-visible surface.
type RoomOptions struct {
	// PictureFile is an optional text file whose contents (typically ASCII
	// art) are appended to the room description.
	PictureFile string `json:"picture-file" mapstructure:"picture-file"`
}

// NewRoomOptions creates a RoomOptions object with default parameters.
func NewRoomOptions() *RoomOptions {
	return &RoomOptions{}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RoomOptions) Validate() []error {
	// A missing picture file degrades to a fallback description at runtime.
	return nil
}

// AddFlags adds flags for the room surface to the specified FlagSet.
func (o *RoomOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.PictureFile, "room.picture-file", o.PictureFile, "Text file appended to the room description.")
}
