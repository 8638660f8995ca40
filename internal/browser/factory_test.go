package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, cfg Config) *ResolvedConfig {
	t.Helper()
	r, err := ResolveConfig(cfg)
	require.NoError(t, err)
	return r
}

func TestFactoryAutoFallsBackToPlaywright(t *testing.T) {
	report := &CapabilityReport{Backends: []string{BackendPlaywright}}
	cfg := testConfig(t, Config{})

	backend, err := newBackendFrom(cfg, discardLogger(), report)
	require.NoError(t, err)
	assert.Equal(t, BackendPlaywright, backend.Name())
}

func TestFactoryAutoPrefersChromeOverEdge(t *testing.T) {
	report := &CapabilityReport{
		Executables: []Executable{
			{Kind: EngineKindEdge, Path: "/usr/bin/microsoft-edge"},
			{Kind: EngineKindChrome, Path: "/usr/bin/google-chrome"},
		},
	}
	cfg := testConfig(t, Config{UseLowLevelProtocol: true})

	backend, err := newBackendFrom(cfg, discardLogger(), report)
	require.NoError(t, err)
	assert.Equal(t, BackendCDPChrome, backend.Name())
}

func TestFactoryLowLevelFlagPicksProtocolDriver(t *testing.T) {
	report := &CapabilityReport{
		Executables: []Executable{{Kind: EngineKindChrome, Path: "/usr/bin/google-chrome"}},
	}

	raw, err := newBackendFrom(testConfig(t, Config{UseLowLevelProtocol: true}), discardLogger(), report)
	require.NoError(t, err)
	assert.IsType(t, &CDPBackend{}, raw)

	hybrid, err := newBackendFrom(testConfig(t, Config{}), discardLogger(), report)
	require.NoError(t, err)
	assert.IsType(t, &HybridBackend{}, hybrid)
	assert.Equal(t, BackendHybrid, hybrid.Name())
}

func TestFactoryExplicitTypeWithoutBinaryFails(t *testing.T) {
	report := &CapabilityReport{}

	_, err := newBackendFrom(testConfig(t, Config{BrowserType: TypeChrome}), discardLogger(), report)
	assert.Error(t, err)

	_, err = newBackendFrom(testConfig(t, Config{BrowserType: TypeEdge}), discardLogger(), report)
	assert.Error(t, err)
}

func TestFactoryExecutablePathOverridesDetection(t *testing.T) {
	report := &CapabilityReport{}
	cfg := testConfig(t, Config{
		BrowserType:         TypeChrome,
		UseLowLevelProtocol: true,
		ExecutablePath:      "/opt/chrome/chrome",
	})

	backend, err := newBackendFrom(cfg, discardLogger(), report)
	require.NoError(t, err)
	assert.Equal(t, BackendCDPChrome, backend.Name())
}

func TestFactoryExplicitPlaywright(t *testing.T) {
	report := &CapabilityReport{
		Executables: []Executable{{Kind: EngineKindChrome, Path: "/usr/bin/google-chrome"}},
	}
	backend, err := newBackendFrom(testConfig(t, Config{BrowserType: TypePlaywright}), discardLogger(), report)
	require.NoError(t, err)
	assert.Equal(t, BackendPlaywright, backend.Name())
}

func TestCapabilityReportAccessors(t *testing.T) {
	report := &CapabilityReport{
		Backends: []string{BackendCDPChrome, BackendHybrid, BackendPlaywright},
		Executables: []Executable{
			{Kind: EngineKindBrave, Path: "/usr/bin/brave-browser"},
			{Kind: EngineKindEdge, Path: "/usr/bin/microsoft-edge"},
		},
	}

	assert.True(t, report.Has(BackendCDPChrome))
	assert.False(t, report.Has(BackendCDPEdge))

	chrome := report.chromeExecutable()
	require.NotNil(t, chrome)
	assert.Equal(t, EngineKindBrave, chrome.Kind, "any chromium-family binary satisfies chrome selection")

	edge := report.edgeExecutable()
	require.NotNil(t, edge)
	assert.Equal(t, EngineKindEdge, edge.Kind)
}

func TestDetectAlwaysOffersPlaywright(t *testing.T) {
	report := Detect()
	assert.True(t, report.Has(BackendPlaywright),
		"the bundled-engine backend must always be offered")
	if len(report.Backends) > 0 {
		assert.Equal(t, BackendPlaywright, report.Backends[len(report.Backends)-1],
			"bundled engines are the lowest-priority choice")
	}
}
