package command

import (
	"errors"
	"strconv"
	"strings"
)

// User-facing rejection messages. The wording is part of the room's surface:
// players see these verbatim.
var (
	ErrIntegerRequired = errors.New("ERROR : The car commands require an integer as the second parameter")
	ErrSteerOutOfRange = errors.New("ERROR : The left and right commands have an integer value between 0 and 100 (inclusive)")
	ErrDriveOutOfRange = errors.New("ERROR : The forwards and backwards commands have an integer value between 0 and 10 (inclusive)")
	ErrBadDirection    = errors.New("Hmm. That direction didn't make sense. Try again?")
	ErrUnrecognised    = errors.New("Unrecognised command - sorry :-(")
)

// Steering lock and drive duration bounds.
const (
	MaxSteerLock    = 100
	MaxDriveSeconds = 10
)

// exitDirections are the room exits a player may /go through.
var exitDirections = []string{"n", "s", "e", "w", "u", "d"}

// driveCommands maps the slash keyword to its action type and upper bound.
var driveCommands = []struct {
	keyword string
	typ     ActionType
	max     int
	rangeErr error
}{
	{"left", ActionTurnLeft, MaxSteerLock, ErrSteerOutOfRange},
	{"right", ActionTurnRight, MaxSteerLock, ErrSteerOutOfRange},
	{"forwards", ActionForward, MaxDriveSeconds, ErrDriveOutOfRange},
	{"backwards", ActionBackward, MaxDriveSeconds, ErrDriveOutOfRange},
}

// Parse turns a raw slash command into an Action, or returns the user-facing
// rejection. The input must start with '/'; matching is case-insensitive.
func Parse(raw string) (Action, error) {
	lower := strings.ToLower(raw)

	if lower == "/look" {
		return Action{Type: ActionLook}, nil
	}

	for _, dc := range driveCommands {
		prefix := "/" + dc.keyword + " "
		if !strings.HasPrefix(lower, prefix) {
			continue
		}

		arg := strings.TrimSpace(lower[len(prefix):])
		value, err := strconv.Atoi(arg)
		if err != nil {
			return Action{}, ErrIntegerRequired
		}
		if value < 0 || value > dc.max {
			return Action{}, dc.rangeErr
		}
		return Action{Type: dc.typ, Value: value}, nil
	}

	if lower == "/go" || strings.HasPrefix(lower, "/go ") {
		dir := ""
		if len(lower) > 4 {
			dir = strings.TrimSpace(lower[4:])
		}
		for _, d := range exitDirections {
			if dir == d {
				return Action{Type: ActionGo, Exit: dir}, nil
			}
		}
		return Action{}, ErrBadDirection
	}

	return Action{}, ErrUnrecognised
}
