package browser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseWait(t *testing.T) {
	assert.Equal(t, WaitUntil(WaitLoad), ParseWait("load"))
	assert.Equal(t, WaitUntil(WaitNetworkIdle), ParseWait("network-idle"))
	assert.Equal(t, WaitUntil(WaitNavigation), ParseWait(" Navigation "))
	assert.Equal(t, WaitDuration(1500*time.Millisecond), ParseWait("1500ms"))
	assert.Equal(t, WaitDuration(2*time.Second), ParseWait("2s"))
	assert.Equal(t, WaitVisible("Order confirmation"), ParseWait("Order confirmation"))
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"example.com":          "https://example.com",
		"http://example.com":   "http://example.com",
		"https://example.com/": "https://example.com/",
		"  example.com ":       "https://example.com",
		"about:blank":          "about:blank",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeURL(in), "input %q", in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 20)
	assert.Equal(t, strings.Repeat("x", 8)+"...", truncate(long, 8))
}

func TestVisibleProbeCombinesStrategies(t *testing.T) {
	probe := visibleProbe("Sign In")
	assert.Contains(t, probe, ") || (")
	assert.NotContains(t, probe, `document.querySelector("Sign In")`,
		"free text must not be probed as a CSS query")

	selProbe := visibleProbe("#login")
	assert.Contains(t, selProbe, `document.querySelector("#login")`)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `'plain'`, xpathLiteral("plain"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	quoted := xpathLiteral(`both ' and "`)
	assert.True(t, strings.HasPrefix(quoted, "concat("), "mixed quotes need concat()")
}
