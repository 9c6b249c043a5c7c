// Package gateway is the player-facing side of the room: a websocket endpoint
// speaking the Game On! text protocol, room fixtures, and the fan-out of
// events, chat and car telemetry back to connected players.
package gateway

import (
	"encoding/json"
	"strings"
)

// Routing prefixes on the player channel. Inbound frames arrive as
// <route>,<roomId>,<json>; outbound frames leave as <route>,<target>,<json>
// where target is a userId or "*" for everyone.
const (
	routeRoomHello      = "roomHello"
	routeRoom           = "room"
	routeRoomGoodbye    = "roomGoodbye"
	routePlayer         = "player"
	routePlayerLocation = "playerLocation"

	allPlayers = "*"
)

// ackFrame is sent once per connection, straight after the upgrade.
func ackFrame() []byte {
	return []byte(`ack,{"version":[1]}`)
}

// splitRouting separates the comma-delimited routing segments from the JSON
// body. Only commas before the first '{' delimit segments; the body is kept
// whole, commas and all.
func splitRouting(message string) []string {
	var parts []string

	brace := strings.IndexByte(message, '{')
	i := 0
	j := strings.IndexByte(message, ',')
	for j > 0 && (brace < 0 || j < brace) {
		parts = append(parts, message[i:j])
		i = j + 1
		next := strings.IndexByte(message[i:], ',')
		if next < 0 {
			j = -1
		} else {
			j = i + next
		}
	}
	parts = append(parts, message[i:])

	return parts
}

func unmarshalBody(body string, v any) error {
	return json.Unmarshal([]byte(body), v)
}

// playerIdentity is the body of roomHello and roomGoodbye frames.
type playerIdentity struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// roomCommand is the body of room frames: one line of player input.
type roomCommand struct {
	playerIdentity
	Content string `json:"content"`
}

type eventPayload struct {
	Type     string            `json:"type"`
	Content  map[string]string `json:"content"`
	Bookmark uint64            `json:"bookmark"`
}

type chatPayload struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Bookmark uint64 `json:"bookmark"`
}

type locationPayload struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	FullName    string            `json:"fullName"`
	Description string            `json:"description"`
	Exits       map[string]string `json:"exits"`
	Objects     []string          `json:"objects"`
	Bookmark    uint64            `json:"bookmark"`
}

type exitPayload struct {
	Type     string `json:"type"`
	ExitID   string `json:"exitId"`
	Bookmark uint64 `json:"bookmark"`
	Content  string `json:"content"`
}

func textFrame(route, target string, payload any) []byte {
	body, _ := json.Marshal(payload)
	frame := make([]byte, 0, len(route)+len(target)+len(body)+2)
	frame = append(frame, route...)
	frame = append(frame, ',')
	frame = append(frame, target...)
	frame = append(frame, ',')
	frame = append(frame, body...)
	return frame
}

// eventFrame carries per-recipient text: content key "*" is shown to
// everyone, a userId key only to that player.
func eventFrame(target string, content map[string]string, bookmark uint64) []byte {
	return textFrame(routePlayer, target, eventPayload{
		Type:     "event",
		Content:  content,
		Bookmark: bookmark,
	})
}

func chatFrame(username, content string, bookmark uint64) []byte {
	return textFrame(routePlayer, allPlayers, chatPayload{
		Type:     "chat",
		Username: username,
		Content:  content,
		Bookmark: bookmark,
	})
}

func locationFrame(userID string, f *Fixtures, bookmark uint64) []byte {
	return textFrame(routePlayer, userID, locationPayload{
		Type:        "location",
		Name:        f.Name,
		FullName:    f.FullName,
		Description: f.Description,
		Exits:       f.Exits,
		Objects:     f.Objects,
		Bookmark:    bookmark,
	})
}

// exitFrame tells the mediator to move the player through a doorway.
func exitFrame(userID, exitID string, bookmark uint64) []byte {
	return textFrame(routePlayerLocation, userID, exitPayload{
		Type:     "exit",
		ExitID:   exitID,
		Bookmark: bookmark,
		Content:  "Run Away!",
	})
}
