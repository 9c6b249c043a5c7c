package car

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
	events  LinkEvents
}

func (l *fakeLink) Send(_ context.Context, frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return l.sendErr
	}
	l.frames = append(l.frames, append([]byte(nil), frame...))
	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLink) wasClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.frames))
	copy(out, l.frames)
	return out
}

func (l *fakeLink) failNextSends(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

type fakeDialer struct {
	mu         sync.Mutex
	dials      int
	failures   int
	delay      time.Duration
	dropOnDial bool // drop the next link again before Dial returns
	last       *fakeLink
}

func (d *fakeDialer) Dial(_ context.Context, events LinkEvents) (Link, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	delay := d.delay
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if n <= d.failures {
		return nil, errors.New("car endpoint unreachable")
	}

	l := &fakeLink{events: events}
	d.mu.Lock()
	d.last = l
	drop := d.dropOnDial
	d.dropOnDial = false
	d.mu.Unlock()
	if drop {
		events.OnClosed(errors.New("car went away mid-dial"))
	}
	return l, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) lastLink() *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestManagerConnectsOnDemand(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second)
	defer m.Close()

	assert.Equal(t, StateDisconnected, m.State())

	require.True(t, m.TryEnsureConnected(context.Background()))
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, 1, d.dialCount())

	require.True(t, m.TryEnsureConnected(context.Background()))
	assert.Equal(t, 1, d.dialCount(), "a live link must be reused")
}

func TestManagerConnectFailureThenRecovery(t *testing.T) {
	d := &fakeDialer{failures: 1}
	m := NewManager(d, time.Second)
	defer m.Close()

	assert.False(t, m.TryEnsureConnected(context.Background()))
	assert.Equal(t, StateFailed, m.State())

	require.True(t, m.TryEnsureConnected(context.Background()))
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, 2, d.dialCount())
}

func TestManagerCoalescesConcurrentConnects(t *testing.T) {
	d := &fakeDialer{delay: 50 * time.Millisecond}
	m := NewManager(d, time.Second)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, m.TryEnsureConnected(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, d.dialCount(), "concurrent attempts must share one dial")
}

func TestManagerLinkLossReportsDown(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second)
	defer m.Close()

	var mu sync.Mutex
	ups, downs := 0, 0
	m.SetHooks(
		func() { mu.Lock(); ups++; mu.Unlock() },
		func() { mu.Lock(); downs++; mu.Unlock() },
	)

	require.True(t, m.TryEnsureConnected(context.Background()))
	mu.Lock()
	assert.Equal(t, 1, ups)
	mu.Unlock()

	d.lastLink().events.OnClosed(errors.New("car went away"))
	waitFor(t, func() bool { return m.State() == StateDisconnected }, "loss not observed")
	mu.Lock()
	assert.Equal(t, 1, downs)
	mu.Unlock()

	// Loss must be reported once even if both the reader and a writer see it.
	d.lastLink().events.OnClosed(errors.New("car went away"))
	mu.Lock()
	assert.Equal(t, 1, downs)
	mu.Unlock()
}

func TestManagerLinkDropDuringConnect(t *testing.T) {
	d := &fakeDialer{dropOnDial: true}
	m := NewManager(d, time.Second)
	defer m.Close()

	var mu sync.Mutex
	ups, downs := 0, 0
	m.SetHooks(
		func() { mu.Lock(); ups++; mu.Unlock() },
		func() { mu.Lock(); downs++; mu.Unlock() },
	)

	assert.False(t, m.TryEnsureConnected(context.Background()),
		"a link that drops before the connect completes is not available")
	assert.Equal(t, StateDisconnected, m.State())
	assert.True(t, d.lastLink().wasClosed(), "the dead link must be released")
	mu.Lock()
	assert.Equal(t, 0, ups, "up hook must not fire for a dead link")
	assert.Equal(t, 0, downs, "a link that never came up has no down transition")
	mu.Unlock()

	err := m.Send(context.Background(), []byte(`{"throttle":20}`))
	assert.ErrorIs(t, err, ErrNotConnected)

	// The next availability check dials afresh.
	require.True(t, m.TryEnsureConnected(context.Background()))
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, 2, d.dialCount())
	mu.Lock()
	assert.Equal(t, 1, ups)
	mu.Unlock()
}

func TestManagerSendWhenDisconnected(t *testing.T) {
	m := NewManager(&fakeDialer{}, time.Second)
	defer m.Close()

	err := m.Send(context.Background(), []byte(`{"throttle":20}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestManagerSendFailureDropsLink(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second)
	defer m.Close()

	require.True(t, m.TryEnsureConnected(context.Background()))
	d.lastLink().failNextSends(errors.New("write on closed pipe"))

	err := m.Send(context.Background(), []byte(`{"throttle":20}`))
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestManagerTelemetryRouting(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second)
	defer m.Close()

	got := make(chan Telemetry, 1)
	m.SetTelemetryHandler(func(tm Telemetry) { got <- tm })

	require.True(t, m.TryEnsureConnected(context.Background()))
	d.lastLink().events.OnTelemetry(`{"id":"abc","userId":"dummy.DevUser","payload":"beep"}`)

	select {
	case tm := <-got:
		assert.Equal(t, "abc", tm.InstructionID)
		assert.Equal(t, "dummy.DevUser", tm.UserID)
		assert.Equal(t, "beep", tm.Payload)
	case <-time.After(time.Second):
		t.Fatal("telemetry not delivered")
	}
}
