package car

import (
	"context"
	"sync"
	"time"

	"github.com/gameon-rooms/carroom/internal/pkg/metrics"
	"github.com/gameon-rooms/carroom/internal/room/queue"
	"github.com/gameon-rooms/carroom/pkg/log"
)

// TickPeriod is the dispatch cadence: one instruction per tick, so throughput
// is hard-capped at 20 instructions/sec. Must match
// instruction.PulsesPerSecond or duration commands drift.
const TickPeriod = 50 * time.Millisecond

// Dispatcher is the single periodic consumer of the instruction queue. It is
// started when the car link comes up and terminated (not paused) when the
// link drops; the next connect restarts it with a fresh ticker.
type Dispatcher struct {
	queue      *queue.Queue
	manager    *Manager
	retryDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool

	log log.Logger
}

// NewDispatcher creates a dispatcher over the given queue and manager.
func NewDispatcher(q *queue.Queue, m *Manager, retryDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		queue:      q,
		manager:    m,
		retryDelay: retryDelay,
		log:        log.WithName("dispatch"),
	}
}

// Start launches the dispatch loop. Idempotent: a second Start while running
// is a no-op, so reconnecting never leaves a duplicate loop.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.running = true

	d.log.Info("Dispatch loop started", "tick", TickPeriod)
	go d.run(ctx)
}

// Stop cancels the dispatch loop. Idempotent. Does not wait for the loop
// goroutine: it observes the cancelled context on its next select, and its
// ticker is released on exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	d.cancel()
	d.cancel = nil
	d.running = false
	d.log.Info("Dispatch loop stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick delivers at most one instruction. An empty queue costs nothing; an
// unavailable car leaves the head of the queue in place and backs off for a
// full recovery window instead of tight-looping against a dead link.
func (d *Dispatcher) tick(ctx context.Context) {
	if d.queue.Len() == 0 {
		return
	}

	if !d.manager.TryEnsureConnected(ctx) {
		d.log.Debug("Car not available, delivery deferred", "queued", d.queue.Len())
		select {
		case <-ctx.Done():
		case <-time.After(d.retryDelay):
		}
		return
	}

	in, ok := d.queue.TryDequeue()
	if !ok {
		return
	}
	metrics.QueueDepth.Set(float64(d.queue.Len()))

	frame, err := in.WireFrame()
	if err != nil {
		metrics.InstructionsDispatchedTotal.WithLabelValues("failed").Inc()
		d.log.Error(err, "Unable to encode instruction", "id", in.ID)
		return
	}

	start := time.Now()
	if err := d.manager.Send(ctx, frame); err != nil {
		// The instruction is lost; the rest of the queue is retained for
		// delivery after reconnect.
		metrics.InstructionsDispatchedTotal.WithLabelValues("failed").Inc()
		d.log.Error(err, "Unable to send instruction to car", "id", in.ID, "group", in.Group)
		return
	}

	metrics.SendLatency.Observe(time.Since(start).Seconds())
	metrics.InstructionsDispatchedTotal.WithLabelValues("sent").Inc()
	d.log.Debug("Instruction sent to car", "id", in.ID, "kind", string(in.Kind))
}
