package updater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
)

func newFlow(t *testing.T, idle, hard uint16) *ofproto.Flow {
	f, err := ofproto.NewFlow(0, 100, 0, nil, nil, idle, hard, 0)
	require.Nil(t, err)
	return f
}

func TestWheelIgnoresFlowsWithNoTimeout(t *testing.T) {
	w := NewWheel()
	f := newFlow(t, 0, 0)
	w.Register(f, time.Now())
	assert.Empty(t, w.Tick(time.Now().Add(time.Hour)))
}

func TestWheelFiresIdleTimeout(t *testing.T) {
	w := NewWheel()
	f := newFlow(t, 5, 0)
	now := time.Now()
	w.Register(f, now)

	assert.Empty(t, w.Tick(now.Add(2*time.Second)), "not due yet")

	expired := w.Tick(now.Add(6 * time.Second))
	require.Len(t, expired, 1)
	assert.Same(t, f, expired[0].Flow)
	assert.EqualValues(t, ofproto.OFPRR_IDLE_TIMEOUT, expired[0].Reason)
}

func TestWheelFiresHardTimeoutEvenWithRecentActivity(t *testing.T) {
	w := NewWheel()
	f := newFlow(t, 100, 5)
	now := time.Now()
	w.Register(f, now)
	f.AddStats(1, 64) // pushes UpdateTime forward, but HardTimeout is absolute

	expired := w.Tick(now.Add(6 * time.Second))
	require.Len(t, expired, 1)
	assert.EqualValues(t, ofproto.OFPRR_HARD_TIMEOUT, expired[0].Reason)
}

func TestWheelReArmsWhenActivityPushesIdleDeadlineForward(t *testing.T) {
	w := NewWheel()
	f := newFlow(t, 3, 0)
	now := time.Now()
	w.Register(f, now)

	// Tick right at the original deadline, but after simulated traffic
	// bumped UpdateTime forward: the flow should be re-armed, not expired.
	f.AddStats(1, 64)
	assert.Empty(t, w.Tick(now.Add(3*time.Second)))

	// It does eventually expire once truly idle past the new deadline.
	expired := w.Tick(now.Add(7 * time.Second))
	require.Len(t, expired, 1)
}

func TestWheelCancelPreventsLaterExpiry(t *testing.T) {
	w := NewWheel()
	f := newFlow(t, 5, 0)
	now := time.Now()
	w.Register(f, now)
	w.Cancel(f)

	assert.Empty(t, w.Tick(now.Add(time.Hour)))
}

func TestWheelHandlesMultipleFlowsInSameBucket(t *testing.T) {
	w := NewWheel()
	now := time.Now()
	a := newFlow(t, 5, 0)
	b := newFlow(t, 5, 0)
	c := newFlow(t, 5, 0)
	w.Register(a, now)
	w.Register(b, now)
	w.Register(c, now)
	w.Cancel(b)

	expired := w.Tick(now.Add(6 * time.Second))
	require.Len(t, expired, 2)
	flows := map[*ofproto.Flow]bool{expired[0].Flow: true, expired[1].Flow: true}
	assert.True(t, flows[a])
	assert.True(t, flows[c])
	assert.False(t, flows[b])
}
