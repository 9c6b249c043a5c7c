package gateway

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gameon-rooms/carroom/pkg/log"
)

const sessionSendBuffer = 64

// session is one websocket connection from the mediator. All outbound frames
// go through a buffered channel so a single goroutine owns the socket writer.
type session struct {
	conn     *websocket.Conn
	outbound chan []byte
	done     chan struct{}
	once     sync.Once

	log log.Logger
}

func newSession(conn *websocket.Conn, logger log.Logger) *session {
	s := &session{
		conn:     conn,
		outbound: make(chan []byte, sessionSendBuffer),
		done:     make(chan struct{}),
		log:      logger,
	}
	go s.writePump()
	return s
}

// send queues a frame for delivery. A session that cannot keep up loses
// frames rather than blocking the room.
func (s *session) send(frame []byte) {
	select {
	case <-s.done:
	case s.outbound <- frame:
	default:
		s.log.Warn("Dropping frame for slow player session")
	}
}

func (s *session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("Player session write failed", "error", err)
				s.close()
				return
			}
		}
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
