package car

import (
	"encoding/json"
	"strings"
)

// Telemetry is an inbound message from the car, attributed to the player it
// concerns.
type Telemetry struct {
	// InstructionID echoes the id of the instruction the telemetry refers to,
	// when the car sends the structured envelope.
	InstructionID string

	// UserID is the player the message is for.
	UserID string

	// Payload is the text to show the player.
	Payload string
}

// telemetryEnvelope is the structured form: {"id":…,"userId":…,"payload":…}.
type telemetryEnvelope struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Payload string `json:"payload"`
}

// ParseTelemetry attributes a raw telemetry message to a player. The
// structured JSON envelope is preferred; free text falls back to treating the
// token after the last space as the player id. Returns false when no
// attribution is possible; such messages are dropped.
func ParseTelemetry(text string) (Telemetry, bool) {
	var env telemetryEnvelope
	if err := json.Unmarshal([]byte(text), &env); err == nil && env.UserID != "" {
		payload := env.Payload
		if payload == "" {
			payload = text
		}
		return Telemetry{InstructionID: env.ID, UserID: env.UserID, Payload: payload}, true
	}

	pos := strings.LastIndex(text, " ")
	if pos == -1 || pos == len(text)-1 {
		return Telemetry{}, false
	}
	return Telemetry{UserID: text[pos+1:], Payload: text}, true
}
