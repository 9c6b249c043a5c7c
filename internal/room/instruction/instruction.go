// Package instruction defines the discrete control instructions sent to the
// car and the expansion from player actions into timed pulse trains.
package instruction

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind identifies the low-level actuator operation.
type Kind string

const (
	KindSteerLeft     Kind = "SteerLeft"
	KindSteerRight    Kind = "SteerRight"
	KindDriveForward  Kind = "DriveForward"
	KindDriveBackward Kind = "DriveBackward"
	KindStop          Kind = "Stop"
)

// Pulse expansion constants. PulsesPerSecond must match the dispatch tick
// period (20 pulses/sec against a 50 ms tick): a mismatch makes the duration
// commands drift.
const (
	PulsesPerSecond  = 20
	ForwardThrottle  = 20
	BackwardThrottle = -70
)

// Instruction is one 50 ms actuation pulse for the car. Value object: once
// queued it is never mutated.
type Instruction struct {
	// ID uniquely identifies this pulse.
	ID string

	// Group is shared by every pulse expanded from the same player action
	// (the wire 'msggrp').
	Group string

	// OriginUserID is the player the instruction came from, used to route
	// telemetry back.
	OriginUserID string

	// Kind is the actuator operation.
	Kind Kind

	// Throttle is the drive power, -100..100. Zero for steering pulses.
	Throttle int

	// Turn is the steering lock, -100 (full left) to +100 (full right).
	// Zero for drive pulses.
	Turn int
}

// wireFrame is the JSON object the car consumes. Throttle and Turning are
// pointers so steering frames omit throttle and drive frames omit turning.
type wireFrame struct {
	ID       string `json:"id"`
	MsgGrp   string `json:"msggrp"`
	Throttle *int   `json:"throttle,omitempty"`
	Turning  *int   `json:"turning,omitempty"`
}

// WireFrame encodes the instruction as the text control frame the car
// expects: {"id":<player>,"msggrp":<group>,"throttle"/"turning":<value>}.
func (in Instruction) WireFrame() ([]byte, error) {
	frame := wireFrame{
		ID:     in.OriginUserID,
		MsgGrp: in.Group,
	}

	throttle := in.Throttle
	turn := in.Turn
	switch in.Kind {
	case KindSteerLeft, KindSteerRight:
		frame.Turning = &turn
	case KindDriveForward, KindDriveBackward:
		frame.Throttle = &throttle
	default:
		// Stop and anything unmapped: both fields, zeroed.
		frame.Throttle = &throttle
		frame.Turning = &turn
	}

	return json.Marshal(frame)
}

func newID() string {
	return uuid.NewString()
}
