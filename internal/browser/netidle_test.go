package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkMonitorIdleTransitions(t *testing.T) {
	m := newNetworkMonitor()

	idle, _ := m.idleSince()
	assert.True(t, idle, "a fresh monitor has nothing in flight")

	m.requestStarted("r1")
	idle, _ = m.idleSince()
	assert.False(t, idle)

	m.requestStarted("r2")
	m.requestFinished("r1")
	idle, _ = m.idleSince()
	assert.False(t, idle, "one request still in flight")

	m.requestFinished("r2")
	idle, since := m.idleSince()
	assert.True(t, idle)
	assert.Less(t, since, idleSettleWindow, "the settle window restarts at the last change")
}

func TestNetworkMonitorIgnoresStaleFinish(t *testing.T) {
	m := newNetworkMonitor()
	m.lastChange = time.Now().Add(-time.Second)

	m.requestFinished("never-started")

	idle, since := m.idleSince()
	assert.True(t, idle)
	assert.GreaterOrEqual(t, since, time.Second,
		"a finish event for an untracked request must not reset the window")
}

func TestWaitIdleResolvesAfterSettleWindow(t *testing.T) {
	m := newNetworkMonitor()
	m.lastChange = time.Now().Add(-idleSettleWindow)

	err := m.waitIdle(context.Background(), time.Second)
	assert.NoError(t, err)
}

func TestWaitIdleTimesOutWhileBusy(t *testing.T) {
	m := newNetworkMonitor()
	m.requestStarted("pending")

	err := m.waitIdle(context.Background(), 150*time.Millisecond)
	require.Error(t, err)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "network-idle", timeout.What)
}

func TestWaitIdleHonorsContext(t *testing.T) {
	m := newNetworkMonitor()
	m.requestStarted("pending")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.waitIdle(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
