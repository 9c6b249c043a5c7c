package gateway

import (
	"os"

	"github.com/gameon-rooms/carroom/pkg/log"
)

const pictureFallback = "Oops, no picture description could be found."

// Fixtures is the static furniture of the room: its identity, description,
// doorways and visible objects.
type Fixtures struct {
	Name        string
	FullName    string
	Description string
	Exits       map[string]string
	Objects     []string
}

// DefaultFixtures builds the car room. When pictureFile names a readable
// text file its contents are appended to the room description; otherwise the
// description degrades gracefully.
func DefaultFixtures(pictureFile string) *Fixtures {
	description := "There is simple wooden table in the centre of the room, there is the smell of burning rubber in the air.\n\n" +
		"Commands are : \n/left <lock 0 - 100>\n/right <lock 0 - 100>\n/forwards <seconds 0 - 10>\n/backwards <seconds 0 - 10>\n"
	if pictureFile != "" {
		description += "\n" + loadPicture(pictureFile)
	}

	return &Fixtures{
		Name:        "CarRoom",
		FullName:    "A room with a remote control car",
		Description: description,
		Exits: map[string]string{
			"n": "A Large doorway to the north",
			"s": "A winding path leading off to the south",
			"e": "An overgrown road, covered in brambles",
			"w": "A shiny metal door, with a bright red handle",
			"u": "A spiral set of stairs, leading upward into the ceiling",
			"d": "A tunnel, leading down into the earth",
		},
		Objects: []string{"Remote control car"},
	}
}

func loadPicture(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Unable to read room picture", "path", path, "error", err)
		return pictureFallback
	}
	return string(data)
}
