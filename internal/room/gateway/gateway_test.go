package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameon-rooms/carroom/internal/room/car"
	"github.com/gameon-rooms/carroom/internal/room/command"
	"github.com/gameon-rooms/carroom/internal/room/instruction"
	"github.com/gameon-rooms/carroom/internal/room/queue"
)

type fakeCar struct {
	mu     sync.Mutex
	trains [][]instruction.Instruction
	err    error
}

func (c *fakeCar) Submit(instrs []instruction.Instruction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.trains = append(c.trains, instrs)
	return nil
}

func (c *fakeCar) trainCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trains)
}

func (c *fakeCar) train(i int) []instruction.Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trains[i]
}

type roomClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialRoom(t *testing.T, g *Gateway) *roomClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(g.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &roomClient{t: t, conn: conn}
	route, _, body := c.read()
	require.Equal(t, "ack", route)
	require.JSONEq(t, `{"version":[1]}`, body)
	return c
}

func (c *roomClient) send(frame string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (c *roomClient) read() (route, target, body string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)

	parts := splitRouting(string(data))
	require.GreaterOrEqual(c.t, len(parts), 2)
	if len(parts) == 2 {
		return parts[0], "", parts[1]
	}
	return parts[0], parts[1], parts[2]
}

func (c *roomClient) readEvent() (target string, payload eventPayload) {
	c.t.Helper()
	route, target, body := c.read()
	require.Equal(c.t, "player", route)
	require.NoError(c.t, json.Unmarshal([]byte(body), &payload))
	return target, payload
}

func (c *roomClient) hello(username, userID string) {
	c.t.Helper()
	c.send(`roomHello,roomId,{"username":"` + username + `","userId":"` + userID + `"}`)
}

func (c *roomClient) goodbye(username, userID string) {
	c.t.Helper()
	c.send(`roomGoodbye,roomId,{"username":"` + username + `","userId":"` + userID + `"}`)
}

func (c *roomClient) command(username, userID, content string) {
	c.t.Helper()
	body, _ := json.Marshal(roomCommand{
		playerIdentity: playerIdentity{Username: username, UserID: userID},
		Content:        content,
	})
	c.send("room,roomId," + string(body))
}

func TestGatewayHelloThenLocation(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)

	c.hello("jane", "dummy.jane")

	target, payload := c.readEvent()
	assert.Equal(t, "*", target)
	assert.Equal(t, "event", payload.Type)
	assert.Equal(t, "You have entered the room", payload.Content["dummy.jane"])
	assert.Equal(t, "Player jane has entered the room", payload.Content["*"])

	route, target, body := c.read()
	assert.Equal(t, "player", route)
	assert.Equal(t, "dummy.jane", target)
	var loc locationPayload
	require.NoError(t, json.Unmarshal([]byte(body), &loc))
	assert.Equal(t, "location", loc.Type)
	assert.Equal(t, "CarRoom", loc.Name)

	assert.Equal(t, 1, g.PlayerCount())

	// A second hello on the same socket is ignored.
	c.hello("jane", "dummy.jane")
	c.command("jane", "dummy.jane", "/look")
	route, _, _ = c.read()
	assert.Equal(t, "player", route, "duplicate hello must produce no extra frames")
}

func TestGatewayLookResendsLocation(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/look")

	route, target, body := c.read()
	assert.Equal(t, "player", route)
	assert.Equal(t, "dummy.jane", target)
	var loc locationPayload
	require.NoError(t, json.Unmarshal([]byte(body), &loc))
	assert.Equal(t, "location", loc.Type)
}

func TestGatewayGoEmitsExit(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/go N")

	route, target, body := c.read()
	assert.Equal(t, "playerLocation", route)
	assert.Equal(t, "dummy.jane", target)
	var exit exitPayload
	require.NoError(t, json.Unmarshal([]byte(body), &exit))
	assert.Equal(t, "exit", exit.Type)
	assert.Equal(t, "n", exit.ExitID)
	assert.Equal(t, "Run Away!", exit.Content)
}

func TestGatewayBadDirection(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/go sideways")

	target, payload := c.readEvent()
	assert.Equal(t, "dummy.jane", target)
	assert.Equal(t, command.ErrBadDirection.Error(), payload.Content["dummy.jane"])
}

func TestGatewayDriveCommandReachesCar(t *testing.T) {
	fc := &fakeCar{}
	g := New(DefaultFixtures(""), fc)
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/forwards 2")

	deadline := time.Now().Add(time.Second)
	for fc.trainCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, fc.trainCount())
	train := fc.train(0)
	assert.Len(t, train, 2*instruction.PulsesPerSecond)
	for _, in := range train {
		assert.Equal(t, "dummy.jane", in.OriginUserID)
		assert.Equal(t, instruction.ForwardThrottle, in.Throttle)
	}
}

func TestGatewayCommandErrorsGoToIssuerOnly(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/forwards lots")
	target, payload := c.readEvent()
	assert.Equal(t, "dummy.jane", target)
	assert.Equal(t, command.ErrIntegerRequired.Error(), payload.Content["dummy.jane"])

	c.command("jane", "dummy.jane", "/teleport")
	target, payload = c.readEvent()
	assert.Equal(t, "dummy.jane", target)
	assert.Equal(t, command.ErrUnrecognised.Error(), payload.Content["dummy.jane"])
}

func TestGatewayQueueFullMessage(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{err: queue.ErrFull})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/left 50")

	target, payload := c.readEvent()
	assert.Equal(t, "dummy.jane", target)
	assert.Contains(t, payload.Content["dummy.jane"], "too many commands queued")
}

func TestGatewayChatBroadcast(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "hello everyone")

	route, target, body := c.read()
	assert.Equal(t, "player", route)
	assert.Equal(t, "*", target)
	var chat chatPayload
	require.NoError(t, json.Unmarshal([]byte(body), &chat))
	assert.Equal(t, "chat", chat.Type)
	assert.Equal(t, "jane", chat.Username)
	assert.Equal(t, "hello everyone", chat.Content)
}

func TestGatewayGoodbyeBroadcast(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.goodbye("jane", "dummy.jane")

	target, payload := c.readEvent()
	assert.Equal(t, "*", target)
	assert.Equal(t, "Player jane has left the room", payload.Content["*"])
	assert.Equal(t, 0, g.PlayerCount())
}

func TestGatewayTelemetryRouting(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	g.HandleTelemetry(car.Telemetry{UserID: "dummy.jane", Payload: "brrm brrm"})

	target, payload := c.readEvent()
	assert.Equal(t, "dummy.jane", target)
	assert.Equal(t, "brrm brrm", payload.Content["dummy.jane"])
}

func TestGatewayTelemetryFallsBackToLastDriver(t *testing.T) {
	fc := &fakeCar{}
	g := New(DefaultFixtures(""), fc)
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")
	c.read()
	c.read()

	c.command("jane", "dummy.jane", "/right 10")
	deadline := time.Now().Add(time.Second)
	for fc.trainCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	g.HandleTelemetry(car.Telemetry{UserID: "someone.else", Payload: "ok"})

	target, payload := c.readEvent()
	assert.Equal(t, "dummy.jane", target)
	assert.Equal(t, "ok", payload.Content["dummy.jane"])
}

func TestGatewayMonotonicBookmarks(t *testing.T) {
	g := New(DefaultFixtures(""), &fakeCar{})
	c := dialRoom(t, g)
	c.hello("jane", "dummy.jane")

	_, first := c.readEvent()

	route, _, body := c.read()
	require.Equal(t, "player", route)
	var loc locationPayload
	require.NoError(t, json.Unmarshal([]byte(body), &loc))

	assert.Greater(t, loc.Bookmark, first.Bookmark)
}
