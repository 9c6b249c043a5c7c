package instruction

import (
	"fmt"

	"github.com/gameon-rooms/carroom/internal/room/command"
)

// Expand converts a validated player action into the discrete pulses the
// dispatch loop sends to the car, one per 50 ms tick. Pure and deterministic
// apart from id generation.
//
// Steering actions expand to exactly one pulse; drive actions expand to
// seconds × PulsesPerSecond identical pulses. A zero-second drive expands to
// nothing.
//
// The numeric bounds are re-checked here with the same user-facing messages
// as the parser: callers other than the gateway may build actions directly.
func Expand(userID string, a command.Action) ([]Instruction, error) {
	group := newID()

	switch a.Type {
	case command.ActionTurnLeft, command.ActionTurnRight:
		if a.Value < 0 || a.Value > command.MaxSteerLock {
			return nil, command.ErrSteerOutOfRange
		}

		turn := a.Value
		kind := KindSteerRight
		if a.Type == command.ActionTurnLeft {
			turn = -turn
			kind = KindSteerLeft
		}
		return []Instruction{{
			ID:           newID(),
			Group:        group,
			OriginUserID: userID,
			Kind:         kind,
			Turn:         turn,
		}}, nil

	case command.ActionForward, command.ActionBackward:
		if a.Value < 0 || a.Value > command.MaxDriveSeconds {
			return nil, command.ErrDriveOutOfRange
		}

		throttle := ForwardThrottle
		kind := KindDriveForward
		if a.Type == command.ActionBackward {
			throttle = BackwardThrottle
			kind = KindDriveBackward
		}

		pulses := make([]Instruction, 0, a.Value*PulsesPerSecond)
		for i := 0; i < a.Value*PulsesPerSecond; i++ {
			pulses = append(pulses, Instruction{
				ID:           newID(),
				Group:        group,
				OriginUserID: userID,
				Kind:         kind,
				Throttle:     throttle,
			})
		}
		return pulses, nil

	default:
		return nil, fmt.Errorf("action %s does not map to a car instruction", a.Type)
	}
}
