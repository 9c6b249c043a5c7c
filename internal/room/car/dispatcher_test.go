package car

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameon-rooms/carroom/internal/room/command"
	"github.com/gameon-rooms/carroom/internal/room/instruction"
	"github.com/gameon-rooms/carroom/internal/room/queue"
)

type sentFrame struct {
	ID       string `json:"id"`
	MsgGrp   string `json:"msggrp"`
	Throttle *int   `json:"throttle"`
	Turning  *int   `json:"turning"`
}

func decodeFrames(t *testing.T, raw [][]byte) []sentFrame {
	t.Helper()
	out := make([]sentFrame, 0, len(raw))
	for _, r := range raw {
		var f sentFrame
		require.NoError(t, json.Unmarshal(r, &f))
		out = append(out, f)
	}
	return out
}

func TestPipelineDeliversDriveTrain(t *testing.T) {
	d := &fakeDialer{}
	p := NewPipeline(d, time.Second, 10*time.Millisecond, 0)
	defer p.Close()

	instrs, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionForward, Value: 1})
	require.NoError(t, err)
	require.Len(t, instrs, instruction.PulsesPerSecond)

	require.NoError(t, p.Submit(instrs))

	waitFor(t, func() bool {
		l := d.lastLink()
		return l != nil && len(l.sent()) == len(instrs)
	}, "drive train not fully delivered")

	frames := decodeFrames(t, d.lastLink().sent())
	for i, f := range frames {
		assert.Equal(t, "dummy.DevUser", f.ID)
		require.NotNil(t, f.Throttle)
		assert.Equal(t, instruction.ForwardThrottle, *f.Throttle)
		assert.Nil(t, f.Turning)
		assert.Equal(t, frames[0].MsgGrp, f.MsgGrp, "pulse %d must share the train's group", i)
	}
}

func TestPipelinePacesDispatch(t *testing.T) {
	d := &fakeDialer{}
	p := NewPipeline(d, time.Second, 10*time.Millisecond, 0)
	defer p.Close()

	instrs, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionBackward, Value: 1})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Submit(instrs))
	waitFor(t, func() bool {
		l := d.lastLink()
		return l != nil && len(l.sent()) == len(instrs)
	}, "drive train not fully delivered")

	// 20 pulses, one per 50 ms tick.
	minimum := time.Duration(len(instrs)-1) * TickPeriod
	assert.GreaterOrEqual(t, time.Since(start), minimum, "pulses must be paced, not burst")
}

func TestPipelineReplaysQueueAfterOutage(t *testing.T) {
	d := &fakeDialer{failures: 1}
	p := NewPipeline(d, time.Second, 20*time.Millisecond, 0)
	defer p.Close()

	left, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionTurnLeft, Value: 100})
	require.NoError(t, err)
	right, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionTurnRight, Value: 100})
	require.NoError(t, err)

	// Accepted while the car is unreachable; the failed connect leaves it
	// queued. The next command's availability check reconnects and replays.
	require.NoError(t, p.Submit(left))
	waitFor(t, func() bool { return d.dialCount() == 1 }, "no connect attempt made")
	require.Nil(t, d.lastLink())
	assert.Equal(t, 1, p.QueueLen())

	require.NoError(t, p.Submit(right))

	waitFor(t, func() bool {
		l := d.lastLink()
		return l != nil && len(l.sent()) == 2
	}, "queued instructions not replayed after reconnect")

	assert.Equal(t, 2, d.dialCount())

	frames := decodeFrames(t, d.lastLink().sent())
	require.NotNil(t, frames[0].Turning)
	require.NotNil(t, frames[1].Turning)
	assert.Equal(t, -100, *frames[0].Turning)
	assert.Equal(t, 100, *frames[1].Turning)
}

func TestPipelineRejectsWhenFull(t *testing.T) {
	d := &fakeDialer{failures: 1000}
	p := NewPipeline(d, time.Second, time.Hour, 5)
	defer p.Close()

	instrs, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionForward, Value: 1})
	require.NoError(t, err)

	err = p.Submit(instrs)
	require.Error(t, err)
	assert.Equal(t, 5, p.QueueLen(), "accepted pulses stay queued")
}

func TestPipelineSurvivesMidTrainLinkLoss(t *testing.T) {
	d := &fakeDialer{}
	p := NewPipeline(d, time.Second, 10*time.Millisecond, 0)
	defer p.Close()

	instrs, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionForward, Value: 1})
	require.NoError(t, err)
	require.NoError(t, p.Submit(instrs))

	waitFor(t, func() bool {
		l := d.lastLink()
		return l != nil && len(l.sent()) >= 3
	}, "train never started")

	first := d.lastLink()
	first.events.OnClosed(assert.AnError)
	waitFor(t, func() bool { return !p.Connected() }, "link loss not observed")

	// The next command reconnects and the retained remainder is replayed.
	kick, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionTurnLeft, Value: 50})
	require.NoError(t, err)
	require.NoError(t, p.Submit(kick))

	waitFor(t, func() bool {
		l := d.lastLink()
		return l != first && l != nil && len(l.sent()) > 0
	}, "dispatch did not resume on a fresh link")
}

func TestPipelineConnectivityHooks(t *testing.T) {
	d := &fakeDialer{}
	p := NewPipeline(d, time.Second, 10*time.Millisecond, 0)
	defer p.Close()

	up := make(chan struct{}, 1)
	down := make(chan struct{}, 1)
	p.SetConnectivityHooks(
		func() { up <- struct{}{} },
		func() { down <- struct{}{} },
	)

	instrs, err := instruction.Expand("dummy.DevUser", command.Action{Type: command.ActionTurnRight, Value: 10})
	require.NoError(t, err)
	require.NoError(t, p.Submit(instrs))

	select {
	case <-up:
	case <-time.After(2 * time.Second):
		t.Fatal("up hook not invoked on connect")
	}

	d.lastLink().events.OnClosed(assert.AnError)
	select {
	case <-down:
	case <-time.After(2 * time.Second):
		t.Fatal("down hook not invoked on loss")
	}
}

func TestDispatcherStartStopIdempotent(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second)
	defer m.Close()

	disp := NewDispatcher(queue.New(0), m, 10*time.Millisecond)
	disp.Start()
	disp.Start()
	disp.Stop()
	disp.Stop()
}
