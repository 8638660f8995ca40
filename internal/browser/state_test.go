package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// explicitNavigate replays the order a backend Navigate really runs in:
// the origin URL is captured before the load, the frame listener fires
// during it, and the commit happens after.
func explicitNavigate(s *sessionState, url string) {
	prev := s.url()
	s.setURL(url) // frame-navigated listener, mid-load
	s.recordNavigation(prev, url)
}

func TestSessionStateNavigationHistory(t *testing.T) {
	var s sessionState

	explicitNavigate(&s, "https://a.example")
	assert.Equal(t, 0, s.historyLen(), "the first navigation has no prior URL to remember")
	assert.Equal(t, "https://a.example", s.url())

	explicitNavigate(&s, "https://b.example")
	explicitNavigate(&s, "https://c.example")
	assert.Equal(t, 2, s.historyLen())

	prev, ok := s.popHistory()
	assert.True(t, ok)
	assert.Equal(t, "https://b.example", prev)

	prev, ok = s.popHistory()
	assert.True(t, ok)
	assert.Equal(t, "https://a.example", prev)

	_, ok = s.popHistory()
	assert.False(t, ok)
}

func TestSessionStateListenerDoesNotCorruptHistory(t *testing.T) {
	var s sessionState

	// The listener always sets the destination before the commit runs.
	// History must still record the origin chain, never destinations.
	prev := s.url()
	s.setURL("https://a.example")
	s.recordNavigation(prev, "https://a.example")
	assert.Equal(t, 0, s.historyLen())

	prev = s.url()
	s.setURL("https://b.example")
	s.recordNavigation(prev, "https://b.example")
	assert.Equal(t, 1, s.historyLen())

	back, ok := s.popHistory()
	assert.True(t, ok)
	assert.Equal(t, "https://a.example", back, "history holds the origin, not the destination")
}

func TestSessionStatePushHistoryRestoresEntry(t *testing.T) {
	var s sessionState

	explicitNavigate(&s, "https://a.example")
	explicitNavigate(&s, "https://b.example")

	prev, ok := s.popHistory()
	assert.True(t, ok)
	s.pushHistory(prev) // the back load failed; keep the entry

	restored, ok := s.popHistory()
	assert.True(t, ok)
	assert.Equal(t, prev, restored)
}

func TestSessionStateSetURLSkipsHistory(t *testing.T) {
	var s sessionState

	explicitNavigate(&s, "https://a.example")
	s.setURL("https://a.example/#section")

	assert.Equal(t, "https://a.example/#section", s.url())
	assert.Equal(t, 0, s.historyLen(), "same-document updates do not grow history")
}

func TestSessionStateInitialized(t *testing.T) {
	var s sessionState
	assert.False(t, s.isInitialized())
	s.markInitialized()
	assert.True(t, s.isInitialized())
}

func TestBumpActionPeriodicPause(t *testing.T) {
	var s sessionState
	for i := 1; i < pauseEvery; i++ {
		assert.False(t, s.bumpAction(), "action %d should not trigger the long pause", i)
	}
	assert.True(t, s.bumpAction(), "every %dth action triggers the long pause", pauseEvery)
	assert.False(t, s.bumpAction())
}
