// Package command parses the chat-style slash commands players type in the
// car room into typed actions. Parsing is total and performs no I/O; plain
// chat (anything not starting with '/') never reaches this package.
package command

// ActionType identifies what a parsed command asks the room to do.
type ActionType string

const (
	// ActionTurnLeft and ActionTurnRight steer the car. Value is the steering
	// lock, 0-100.
	ActionTurnLeft  ActionType = "TurnLeft"
	ActionTurnRight ActionType = "TurnRight"

	// ActionForward and ActionBackward drive the car. Value is the duration
	// in seconds, 0-10.
	ActionForward  ActionType = "Forward"
	ActionBackward ActionType = "Backward"

	// ActionLook re-sends the room description.
	ActionLook ActionType = "Look"

	// ActionGo asks for a room exit. Exit holds the direction.
	ActionGo ActionType = "Go"
)

// Action is the typed result of parsing a player command. Immutable; the
// numeric bounds are checked here syntactically and re-checked by the
// instruction factory.
type Action struct {
	Type  ActionType
	Value int
	Exit  string
}

// IsDrive reports whether the action controls the car.
func (a Action) IsDrive() bool {
	switch a.Type {
	case ActionTurnLeft, ActionTurnRight, ActionForward, ActionBackward:
		return true
	}
	return false
}
