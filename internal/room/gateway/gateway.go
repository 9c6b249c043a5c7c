package gateway

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/gameon-rooms/carroom/internal/pkg/metrics"
	"github.com/gameon-rooms/carroom/internal/room/car"
	"github.com/gameon-rooms/carroom/internal/room/command"
	"github.com/gameon-rooms/carroom/internal/room/instruction"
	"github.com/gameon-rooms/carroom/internal/room/queue"
	"github.com/gameon-rooms/carroom/pkg/log"
)

// CarControl is the slice of the car pipeline the gateway drives.
type CarControl interface {
	Submit(instrs []instruction.Instruction) error
}

// Gateway accepts player websocket connections and mediates between the Game
// On! protocol and the car pipeline. Inbound frames are handled on the
// connection's reader goroutine; car submission is fire-and-forget, so a slow
// or absent car never stalls a player.
type Gateway struct {
	fixtures *Fixtures
	car      CarControl

	upgrader websocket.Upgrader
	bookmark atomic.Uint64

	mu         sync.Mutex
	sessions   map[*session]struct{}
	players    map[string]string
	bySession  map[*session]string
	byPlayer   map[string]*session
	lastDriver string

	log log.Logger
}

// New builds a gateway over the given fixtures and car control.
func New(fixtures *Fixtures, carControl CarControl) *Gateway {
	return &Gateway{
		fixtures: fixtures,
		car:      carControl,
		upgrader: websocket.Upgrader{
			// The mediator connects from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions:  make(map[*session]struct{}),
		players:   make(map[string]string),
		bySession: make(map[*session]string),
		byPlayer:  make(map[string]*session),
		log:       log.WithName("gateway"),
	}
}

// HandleWebSocket upgrades the request and serves the room protocol until the
// peer goes away. One goroutine per connection reads; the session's write
// pump sends.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := newSession(conn, g.log.WithValues("remote", r.RemoteAddr))
	g.log.Info("A new connection has been made to the room", "remote", r.RemoteAddr)
	s.send(ackFrame())

	defer g.dropSession(s)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			g.log.Info("A connection to the room has been closed", "remote", r.RemoteAddr)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		g.dispatch(s, string(data))
	}
}

func (g *Gateway) dispatch(s *session, message string) {
	parts := splitRouting(message)
	if len(parts) < 3 {
		g.log.Warn("Malformed frame from mediator", "frame", message)
		return
	}

	switch parts[0] {
	case routeRoomHello:
		g.handleHello(s, parts[2])
	case routeRoom:
		g.handleCommand(s, parts[2])
	case routeRoomGoodbye:
		g.handleGoodbye(s, parts[2])
	default:
		g.log.Debug("Ignoring unknown route", "route", parts[0])
	}
}

func (g *Gateway) handleHello(s *session, body string) {
	var who playerIdentity
	if err := unmarshalBody(body, &who); err != nil {
		g.log.Warn("Bad roomHello payload", "error", err)
		return
	}

	g.mu.Lock()
	g.sessions[s] = struct{}{}
	_, already := g.players[who.UserID]
	if !already {
		g.players[who.UserID] = who.Username
		g.bySession[s] = who.UserID
		g.byPlayer[who.UserID] = s
	}
	count := len(g.players)
	g.mu.Unlock()

	if already {
		return
	}
	metrics.PlayersInRoom.Set(float64(count))
	g.log.Info("Player entered the room", "username", who.Username, "userID", who.UserID)

	g.broadcast(eventFrame(allPlayers, map[string]string{
		who.UserID: "You have entered the room",
		allPlayers: "Player " + who.Username + " has entered the room",
	}, g.nextBookmark()))
	s.send(locationFrame(who.UserID, g.fixtures, g.nextBookmark()))
}

func (g *Gateway) handleGoodbye(s *session, body string) {
	var who playerIdentity
	if err := unmarshalBody(body, &who); err != nil {
		g.log.Warn("Bad roomGoodbye payload", "error", err)
		return
	}

	g.mu.Lock()
	delete(g.sessions, s)
	delete(g.players, who.UserID)
	delete(g.bySession, s)
	delete(g.byPlayer, who.UserID)
	count := len(g.players)
	g.mu.Unlock()

	metrics.PlayersInRoom.Set(float64(count))
	g.log.Info("Player left the room", "username", who.Username, "userID", who.UserID)

	g.broadcast(eventFrame(allPlayers, map[string]string{
		allPlayers: "Player " + who.Username + " has left the room",
	}, g.nextBookmark()))
}

func (g *Gateway) handleCommand(s *session, body string) {
	var cmd roomCommand
	if err := unmarshalBody(body, &cmd); err != nil {
		g.log.Warn("Bad room payload", "error", err)
		return
	}

	content := strings.TrimSpace(cmd.Content)
	g.log.Debug("Command received from the user", "userID", cmd.UserID, "content", content)

	// Everything that is not a slash command is chat.
	if !strings.HasPrefix(content, "/") {
		g.broadcast(chatFrame(cmd.Username, cmd.Content, g.nextBookmark()))
		return
	}

	action, err := command.Parse(content)
	if err != nil {
		g.tellPlayer(s, cmd.UserID, err.Error())
		return
	}

	switch action.Type {
	case command.ActionLook:
		s.send(locationFrame(cmd.UserID, g.fixtures, g.nextBookmark()))

	case command.ActionGo:
		s.send(exitFrame(cmd.UserID, action.Exit, g.nextBookmark()))

	default:
		g.driveCar(s, cmd.UserID, action)
	}
}

// driveCar expands a steering or drive action into its pulse train and hands
// it to the pipeline. The issuing player becomes the fallback recipient for
// telemetry the car does not attribute.
func (g *Gateway) driveCar(s *session, userID string, action command.Action) {
	instrs, err := instruction.Expand(userID, action)
	if err != nil {
		g.tellPlayer(s, userID, err.Error())
		return
	}

	g.mu.Lock()
	g.lastDriver = userID
	g.mu.Unlock()

	if err := g.car.Submit(instrs); err != nil {
		if errors.Is(err, queue.ErrFull) {
			g.tellPlayer(s, userID, "ERROR : The car has too many commands queued already, try again in a moment")
			return
		}
		g.log.Error(err, "Unable to queue car instructions", "userID", userID)
		g.tellPlayer(s, userID, "ERROR : The car did not accept the command")
	}
}

// HandleTelemetry routes a telemetry message from the car back to the player
// it belongs to. Messages for unknown players fall back to the last player
// who drove the car.
func (g *Gateway) HandleTelemetry(t car.Telemetry) {
	g.mu.Lock()
	target := t.UserID
	s, ok := g.byPlayer[target]
	if !ok && g.lastDriver != "" {
		target = g.lastDriver
		s, ok = g.byPlayer[target]
	}
	g.mu.Unlock()

	if !ok {
		g.log.Debug("No player to receive telemetry", "userID", t.UserID)
		return
	}
	s.send(eventFrame(target, map[string]string{target: t.Payload}, g.nextBookmark()))
}

// AnnounceCarUp tells the room the car is drivable again.
func (g *Gateway) AnnounceCarUp() {
	g.broadcast(eventFrame(allPlayers, map[string]string{
		allPlayers: "The remote control car crackles to life",
	}, g.nextBookmark()))
}

// AnnounceCarDown tells the room the car has gone away.
func (g *Gateway) AnnounceCarDown() {
	g.broadcast(eventFrame(allPlayers, map[string]string{
		allPlayers: "The remote control car splutters to a halt",
	}, g.nextBookmark()))
}

// PlayerCount returns the number of players currently in the room.
func (g *Gateway) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

func (g *Gateway) tellPlayer(s *session, userID, message string) {
	s.send(eventFrame(userID, map[string]string{userID: message}, g.nextBookmark()))
}

func (g *Gateway) broadcast(frame []byte) {
	g.mu.Lock()
	targets := make([]*session, 0, len(g.sessions))
	for s := range g.sessions {
		targets = append(targets, s)
	}
	g.mu.Unlock()

	for _, s := range targets {
		s.send(frame)
	}
}

func (g *Gateway) nextBookmark() uint64 {
	return g.bookmark.Add(1)
}

func (g *Gateway) dropSession(s *session) {
	g.mu.Lock()
	delete(g.sessions, s)
	if userID, ok := g.bySession[s]; ok {
		delete(g.bySession, s)
		delete(g.players, userID)
		delete(g.byPlayer, userID)
	}
	count := len(g.players)
	g.mu.Unlock()

	metrics.PlayersInRoom.Set(float64(count))
	s.close()
}
