package browser

import (
	"context"
	"sync"
	"time"
)

// idleSettleWindow is how long the in-flight counter must stay at
// exactly zero before network-idle is declared.
const idleSettleWindow = 500 * time.Millisecond

// networkMonitor counts in-flight requests from discrete protocol
// events. Events are applied in the order received; a response or
// failure for a request that was never (or is no longer) tracked is
// ignored, so a stale request finishing after a timeout cannot corrupt
// later reads.
type networkMonitor struct {
	mu         sync.Mutex
	inflight   map[string]struct{}
	lastChange time.Time
}

func newNetworkMonitor() *networkMonitor {
	return &networkMonitor{
		inflight:   make(map[string]struct{}),
		lastChange: time.Now(),
	}
}

func (m *networkMonitor) requestStarted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight[id] = struct{}{}
	m.lastChange = time.Now()
}

func (m *networkMonitor) requestFinished(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inflight[id]; !ok {
		return
	}
	delete(m.inflight, id)
	m.lastChange = time.Now()
}

// idleSince reports whether the counter is zero and for how long it has
// been unchanged.
func (m *networkMonitor) idleSince() (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight) == 0, time.Since(m.lastChange)
}

// waitIdle resolves once the in-flight count has been exactly zero for
// the full settling window, or fails with a TimeoutError at the bound.
// An intervening request start resets the window.
func (m *networkMonitor) waitIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		idle, since := m.idleSince()
		if idle && since >= idleSettleWindow {
			return nil
		}
		if time.Now().After(deadline) {
			return &TimeoutError{What: "network-idle", Elapsed: timeout}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
