package car

import (
	"context"
	"time"

	"github.com/gameon-rooms/carroom/internal/pkg/metrics"
	"github.com/gameon-rooms/carroom/internal/room/instruction"
	"github.com/gameon-rooms/carroom/internal/room/queue"
)

// Pipeline is the car-facing half of the room: it accepts instruction trains
// from the command layer, buffers them, and owns the connection manager and
// dispatch loop that drain them toward the car.
//
// The dispatch loop follows link availability. It starts on a successful
// connect and terminates when the link drops; the next Submit kicks a fresh
// connection attempt, which restarts it. Instructions queued across an outage
// are retained and replayed.
type Pipeline struct {
	queue      *queue.Queue
	manager    *Manager
	dispatcher *Dispatcher

	onUp   func()
	onDown func()
}

// NewPipeline wires a queue, a connection manager over the given dialer and a
// dispatcher together.
func NewPipeline(dialer Dialer, connectTimeout, retryDelay time.Duration, queueCapacity int) *Pipeline {
	q := queue.New(queueCapacity)
	m := NewManager(dialer, connectTimeout)

	p := &Pipeline{
		queue:      q,
		manager:    m,
		dispatcher: NewDispatcher(q, m, retryDelay),
	}
	m.SetHooks(p.handleUp, p.handleDown)
	return p
}

// Submit enqueues a full instruction train. Either every instruction is
// accepted or, on a full queue, the remainder of the train is refused and
// queue.ErrFull returned; earlier pulses of the train stay queued.
//
// Submit never blocks on the car: if the link is down a connection attempt is
// kicked off in the background and the train waits in the queue.
func (p *Pipeline) Submit(instrs []instruction.Instruction) error {
	for _, in := range instrs {
		if err := p.queue.Enqueue(in); err != nil {
			return err
		}
		metrics.InstructionsEnqueuedTotal.WithLabelValues(string(in.Kind)).Inc()
	}
	metrics.QueueDepth.Set(float64(p.queue.Len()))

	if p.manager.State() != StateConnected {
		go p.manager.TryEnsureConnected(context.Background())
	}
	return nil
}

// SetTelemetryHandler registers the callback for car telemetry. Must be
// called before the first connect.
func (p *Pipeline) SetTelemetryHandler(h func(Telemetry)) {
	p.manager.SetTelemetryHandler(h)
}

// SetConnectivityHooks registers callbacks invoked when the car link comes up
// or drops, for player-facing announcements. Must be called before the first
// connect.
func (p *Pipeline) SetConnectivityHooks(onUp, onDown func()) {
	p.onUp = onUp
	p.onDown = onDown
}

// Connected reports whether the car link is currently up.
func (p *Pipeline) Connected() bool {
	return p.manager.State() == StateConnected
}

// QueueLen returns the number of instructions awaiting dispatch.
func (p *Pipeline) QueueLen() int {
	return p.queue.Len()
}

// Close stops the dispatch loop and tears down the car link. Queued
// instructions are discarded.
func (p *Pipeline) Close() {
	p.dispatcher.Stop()
	p.manager.Close()
}

func (p *Pipeline) handleUp() {
	p.dispatcher.Start()
	if p.onUp != nil {
		p.onUp()
	}
}

func (p *Pipeline) handleDown() {
	p.dispatcher.Stop()
	if p.onDown != nil {
		p.onDown()
	}
}
