package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gameon-rooms/carroom/pkg/options"
)

func TestHTTPServerHonoursConfiguredTimeouts(t *testing.T) {
	opts := options.NewHttpOptions()
	opts.Addr = "127.0.0.1:9081"
	opts.ReadTimeout = 7 * time.Second
	opts.WriteTimeout = 9 * time.Second

	s := &RoomServer{httpOptions: opts}
	server := s.newHTTPServer(nil)

	assert.Equal(t, "127.0.0.1:9081", server.Addr)
	assert.Equal(t, 7*time.Second, server.ReadTimeout)
	assert.Equal(t, 9*time.Second, server.WriteTimeout)
}
