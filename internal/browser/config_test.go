package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigDefaults(t *testing.T) {
	r, err := ResolveConfig(Config{})
	require.NoError(t, err)

	assert.Equal(t, TypeAuto, r.BrowserType)
	assert.Equal(t, EngineChromium, r.Engine)
	assert.Equal(t, Viewport{Width: 1280, Height: 800}, r.Viewport)
	assert.Equal(t, 30*time.Second, r.Timeout)
	assert.Equal(t, DialogAccept, r.DialogPolicy)
	assert.Equal(t, DefaultCDPPort, r.CDPPort)
}

func TestResolveConfigValidation(t *testing.T) {
	_, err := ResolveConfig(Config{BrowserType: "netscape"})
	assert.Error(t, err)

	_, err = ResolveConfig(Config{Engine: "gecko"})
	assert.Error(t, err)

	_, err = ResolveConfig(Config{DialogPolicy: "ignore"})
	assert.Error(t, err)
}

func TestResolveConfigOverrides(t *testing.T) {
	r, err := ResolveConfig(Config{
		BrowserType:         TypeEdge,
		UseLowLevelProtocol: true,
		TimeoutMs:           5000,
		Viewport:            Viewport{Width: 1920, Height: 1080},
		CDPPort:             9333,
		Seed:                42,
	})
	require.NoError(t, err)

	assert.Equal(t, TypeEdge, r.BrowserType)
	assert.True(t, r.UseLowLevelProtocol)
	assert.Equal(t, 5*time.Second, r.Timeout)
	assert.Equal(t, Viewport{Width: 1920, Height: 1080}, r.Viewport)
	assert.Equal(t, 9333, r.CDPPort)
	assert.Equal(t, int64(42), r.Seed)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prowl.yaml")
	doc := `browserType: chrome
useLowLevelProtocol: true
headless: true
timeoutMs: 12000
viewport:
  width: 1440
  height: 900
dialogPolicy: dismiss
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	r, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, TypeChrome, r.BrowserType)
	assert.True(t, r.UseLowLevelProtocol)
	assert.True(t, r.Headless)
	assert.Equal(t, 12*time.Second, r.Timeout)
	assert.Equal(t, Viewport{Width: 1440, Height: 900}, r.Viewport)
	assert.Equal(t, DialogDismiss, r.DialogPolicy)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
