package car

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gameon-rooms/carroom/pkg/log"
)

// WebsocketDialer produces car links over a websocket endpoint, typically the
// bridge process sitting next to the car hardware.
type WebsocketDialer struct {
	Endpoint string
}

var _ Dialer = (*WebsocketDialer)(nil)

// Dial opens a websocket to the car endpoint and starts the read loop. The
// returned link is live until the peer closes or the transport errors.
func (d *WebsocketDialer) Dial(ctx context.Context, events LinkEvents) (Link, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, d.Endpoint, nil)
	if err != nil {
		return nil, err
	}

	l := &wsLink{
		conn:   conn,
		events: events,
		log:    log.WithName("carlink").WithValues("endpoint", d.Endpoint),
	}
	go l.readLoop()
	return l, nil
}

// wsLink serializes writes with a mutex; gorilla/websocket permits one
// concurrent writer only.
type wsLink struct {
	conn   *websocket.Conn
	events LinkEvents

	writeMu sync.Mutex
	once    sync.Once

	log log.Logger
}

func (l *wsLink) Send(ctx context.Context, frame []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = l.conn.SetWriteDeadline(deadline)
	} else {
		_ = l.conn.SetWriteDeadline(time.Time{})
	}

	return l.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close shuts the socket without firing OnClosed; the reader's subsequent
// error is swallowed by the same once.
func (l *wsLink) Close() error {
	var err error
	l.once.Do(func() {
		err = l.conn.Close()
	})
	return err
}

func (l *wsLink) readLoop() {
	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			l.fail(err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if l.events.OnTelemetry != nil {
			l.events.OnTelemetry(string(data))
		}
	}
}

// fail reports an unexpected transport loss exactly once.
func (l *wsLink) fail(err error) {
	l.once.Do(func() {
		l.log.Debug("Car websocket closed", "error", err)
		_ = l.conn.Close()
		if l.events.OnClosed != nil {
			l.events.OnClosed(err)
		}
	})
}
