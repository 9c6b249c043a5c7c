package car

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/singleflight"

	"github.com/gameon-rooms/carroom/internal/pkg/metrics"
	"github.com/gameon-rooms/carroom/pkg/log"
)

// Connection states. One state cell per room process; the dispatch loop reads
// it, only the manager mutates it.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateFailed       = "failed"
)

// State machine events.
const (
	eventConnect       = "connect"
	eventConnected     = "connected"
	eventConnectFailed = "connect_failed"
	eventLost          = "lost"
)

// Manager owns the lifecycle of the car link: connect on demand, detect
// loss, and flip the shared availability state. Failed is retried exactly
// like Disconnected: every availability check attempts a fresh connect.
type Manager struct {
	dialer         Dialer
	connectTimeout time.Duration

	machine *fsm.FSM
	sf      singleflight.Group

	mu          sync.Mutex // guards link and transition+link consistency
	link        Link
	onTelemetry func(Telemetry)

	// onUp/onDown start and stop the dispatch loop.
	onUp   func()
	onDown func()

	log log.Logger
}

// NewManager creates a manager in the Disconnected state.
func NewManager(dialer Dialer, connectTimeout time.Duration) *Manager {
	m := &Manager{
		dialer:         dialer,
		connectTimeout: connectTimeout,
		log:            log.WithName("car"),
	}

	m.machine = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected, StateFailed}, Dst: StateConnecting},
			{Name: eventConnected, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: eventConnectFailed, Src: []string{StateConnecting}, Dst: StateFailed},
			{Name: eventLost, Src: []string{StateConnected, StateConnecting}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if e.Dst == StateConnected {
					metrics.CarConnectivityStatus.Set(1)
				} else {
					metrics.CarConnectivityStatus.Set(0)
				}
				m.log.Debug("Car connection state changed", "from", e.Src, "to", e.Dst)
			},
		},
	)

	return m
}

// SetHooks wires the dispatch loop start/stop callbacks. Must be called
// before the first connect attempt.
func (m *Manager) SetHooks(onUp, onDown func()) {
	m.onUp = onUp
	m.onDown = onDown
}

// SetTelemetryHandler registers the sink for attributed car telemetry.
func (m *Manager) SetTelemetryHandler(h func(Telemetry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTelemetry = h
}

// State returns the current connection state.
func (m *Manager) State() string {
	return m.machine.Current()
}

// TryEnsureConnected reports whether the car is reachable, lazily connecting
// if it is not. Concurrent callers coalesce into a single in-flight connect
// attempt and share its result; repeated calls while Connected do nothing.
func (m *Manager) TryEnsureConnected(ctx context.Context) bool {
	if m.machine.Is(StateConnected) {
		return true
	}

	_, err, _ := m.sf.Do("connect", func() (any, error) {
		// A concurrent caller may have completed the connect while this call
		// waited on the flight group.
		if m.machine.Is(StateConnected) {
			return nil, nil
		}
		return nil, m.connect(ctx)
	})
	return err == nil
}

func (m *Manager) connect(ctx context.Context) error {
	m.mu.Lock()
	if err := m.machine.Event(ctx, eventConnect); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("cannot start connect from state %s: %w", m.machine.Current(), err)
	}
	m.mu.Unlock()

	m.log.Info("Connecting to car")

	dialCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	link, err := m.dialer.Dial(dialCtx, LinkEvents{
		OnTelemetry: m.forwardTelemetry,
		OnClosed:    m.handleLost,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		_ = m.machine.Event(ctx, eventConnectFailed)
		m.log.Error(err, "Unable to connect to car")
		return fmt.Errorf("connect to car: %w", err)
	}

	if evErr := m.machine.Event(ctx, eventConnected); evErr != nil {
		// The link dropped before the transition completed; handleLost has
		// already flipped the state back to Disconnected. Do not install the
		// dead link and do not report the car as up.
		_ = link.Close()
		m.log.Warn("Car link dropped during connect", "error", evErr)
		return fmt.Errorf("car link dropped during connect: %w", evErr)
	}
	m.link = link
	m.log.Info("Car connected")

	if m.onUp != nil {
		m.onUp()
	}
	return nil
}

// Send transmits one control frame over the established link. A transport
// error tears the connection down; the instruction is not re-queued.
func (m *Manager) Send(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	link := m.link
	m.mu.Unlock()

	if link == nil || !m.machine.Is(StateConnected) {
		return ErrNotConnected
	}

	if err := link.Send(ctx, frame); err != nil {
		m.handleLost(err)
		return fmt.Errorf("send to car: %w", err)
	}
	return nil
}

// Close tears down the link and stops the dispatch loop.
func (m *Manager) Close() {
	m.handleLost(nil)
}

// handleLost flips the state to Disconnected and releases the link. Invoked
// from the link's own goroutines on transport close or error; safe to call
// more than once.
func (m *Manager) handleLost(err error) {
	m.mu.Lock()
	wasUp := m.machine.Is(StateConnected)
	if evErr := m.machine.Event(context.Background(), eventLost); evErr != nil {
		// Already disconnected or failed.
		m.mu.Unlock()
		return
	}
	link := m.link
	m.link = nil
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("Car connection lost", "error", err)
	} else {
		m.log.Info("Car connection closed")
	}

	if link != nil {
		_ = link.Close()
	}
	// A link lost while still Connecting never came up, so there is no
	// down transition to report.
	if wasUp && m.onDown != nil {
		m.onDown()
	}
}

func (m *Manager) forwardTelemetry(text string) {
	m.mu.Lock()
	handler := m.onTelemetry
	m.mu.Unlock()

	t, ok := ParseTelemetry(text)
	if !ok {
		// No attributable player: best-effort forwarding, drop it.
		m.log.Debug("Dropping unattributable telemetry", "text", text)
		return
	}

	m.log.Debug("Telemetry received from car", "userID", t.UserID)
	if handler != nil {
		handler(t)
	}
}
