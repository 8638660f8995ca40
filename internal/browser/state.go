package browser

import (
	"context"
	"sync"
	"time"

	"github.com/prowlio/prowl/internal/humanize"
)

// pauseEvery is how many actions pass between the longer randomized
// pauses a human would naturally take.
const pauseEvery = 12

// sessionState is the bookkeeping every backend shares: initialization
// flag, current URL, navigation history and the action counter driving
// periodic pauses. A session is exclusively owned by its creating
// caller; the mutex only guards against the backends' own event
// listeners, not concurrent callers.
type sessionState struct {
	mu          sync.Mutex
	initialized bool
	currentURL  string
	history     []string
	actions     int
}

func (s *sessionState) markInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

func (s *sessionState) isInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// recordNavigation commits an explicit navigation. prev must be the URL
// captured before the load was issued: the frame listeners update
// currentURL while the load is in flight, so reading it after the load
// would push the destination instead of the origin. prev is pushed onto
// the history stack only when one exists, so the first navigation of a
// fresh session grows no history.
func (s *sessionState) recordNavigation(prev, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev != "" {
		s.history = append(s.history, prev)
	}
	s.currentURL = url
}

// setURL updates the current URL without touching history, for
// same-document updates observed through events.
func (s *sessionState) setURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentURL = url
}

func (s *sessionState) url() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

// pushHistory restores an entry popped for a back navigation whose load
// then failed.
func (s *sessionState) pushHistory(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, url)
}

// popHistory returns and removes the most recent history entry.
func (s *sessionState) popHistory() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return "", false
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return last, true
}

func (s *sessionState) historyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// bumpAction increments the action counter and reports whether a longer
// pause is due.
func (s *sessionState) bumpAction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions++
	return s.actions%pauseEvery == 0
}

// actionPause applies the pre-interaction humanized delay, including
// the periodic longer pause.
func actionPause(ctx context.Context, sim *humanize.Simulator, state *sessionState) {
	if state.bumpAction() {
		_ = sim.Delay(ctx, 1200*time.Millisecond, 3*time.Second)
		return
	}
	_ = sim.Delay(ctx, 150*time.Millisecond, 450*time.Millisecond)
}
