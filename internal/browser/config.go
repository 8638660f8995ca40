package browser

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend type names accepted in configuration.
const (
	TypeAuto       = "auto"
	TypeChrome     = "chrome"
	TypeEdge       = "edge"
	TypePlaywright = "playwright"
)

// Playwright rendering engines.
const (
	EngineChromium = "chromium"
	EngineFirefox  = "firefox"
	EngineWebkit   = "webkit"
)

// Dialog auto-handling policies.
const (
	DialogAccept  = "accept"
	DialogDismiss = "dismiss"
)

// DefaultCDPPort is the fixed local debugging port the protocol driver
// launches engines with.
const DefaultCDPPort = 9222

// Config is the caller-facing browser configuration.
type Config struct {
	// BrowserType selects the backend: auto, chrome, edge, playwright.
	BrowserType string `json:"browserType,omitempty" yaml:"browserType,omitempty"`

	// UseLowLevelProtocol picks the raw CDP driver over the hybrid
	// driver for chrome/edge targets.
	UseLowLevelProtocol bool `json:"useLowLevelProtocol,omitempty" yaml:"useLowLevelProtocol,omitempty"`

	// Engine is the Playwright rendering engine (chromium, firefox,
	// webkit). Ignored by the other backends.
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty"`

	// ExecutablePath overrides engine auto-detection.
	ExecutablePath string `json:"executablePath,omitempty" yaml:"executablePath,omitempty"`

	Headless bool     `json:"headless,omitempty" yaml:"headless,omitempty"`
	Viewport Viewport `json:"viewport,omitempty" yaml:"viewport,omitempty"`

	// TimeoutMs bounds navigations and waits. Zero means 30000.
	TimeoutMs int `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`

	// ExtraLaunchArgs are appended to the engine command line.
	ExtraLaunchArgs []string `json:"extraLaunchArgs,omitempty" yaml:"extraLaunchArgs,omitempty"`

	// Proxy is accepted only at construction time. Changing proxy on a
	// live session is unsupported and reports failure.
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty"`

	// DialogPolicy is how unexpected native dialogs are auto-handled:
	// accept or dismiss. Default accept.
	DialogPolicy string `json:"dialogPolicy,omitempty" yaml:"dialogPolicy,omitempty"`

	// CDPPort overrides the debugging port for the protocol driver.
	CDPPort int `json:"cdpPort,omitempty" yaml:"cdpPort,omitempty"`

	// UserDataDir is the profile directory for launched engines.
	UserDataDir string `json:"userDataDir,omitempty" yaml:"userDataDir,omitempty"`

	// NoSandbox disables the engine sandbox (containers).
	NoSandbox bool `json:"noSandbox,omitempty" yaml:"noSandbox,omitempty"`

	// Seed fixes the humanizer randomness source. Zero = time-seeded.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Viewport is the browsing context size.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ResolvedConfig is a Config with defaults applied. Backends receive it
// by value at construction and never mutate it afterwards.
type ResolvedConfig struct {
	BrowserType         string
	UseLowLevelProtocol bool
	Engine              string
	ExecutablePath      string
	Headless            bool
	Viewport            Viewport
	Timeout             time.Duration
	ExtraLaunchArgs     []string
	Proxy               string
	DialogPolicy        string
	CDPPort             int
	UserDataDir         string
	NoSandbox           bool
	Seed                int64
}

// ResolveConfig applies defaults and validates enum fields.
func ResolveConfig(cfg Config) (*ResolvedConfig, error) {
	r := &ResolvedConfig{
		BrowserType:         cfg.BrowserType,
		UseLowLevelProtocol: cfg.UseLowLevelProtocol,
		Engine:              cfg.Engine,
		ExecutablePath:      cfg.ExecutablePath,
		Headless:            cfg.Headless,
		Viewport:            cfg.Viewport,
		ExtraLaunchArgs:     cfg.ExtraLaunchArgs,
		Proxy:               cfg.Proxy,
		DialogPolicy:        cfg.DialogPolicy,
		CDPPort:             cfg.CDPPort,
		UserDataDir:         cfg.UserDataDir,
		NoSandbox:           cfg.NoSandbox,
		Seed:                cfg.Seed,
	}

	if r.BrowserType == "" {
		r.BrowserType = TypeAuto
	}
	switch r.BrowserType {
	case TypeAuto, TypeChrome, TypeEdge, TypePlaywright:
	default:
		return nil, fmt.Errorf("unknown browserType: %q", cfg.BrowserType)
	}

	if r.Engine == "" {
		r.Engine = EngineChromium
	}
	switch r.Engine {
	case EngineChromium, EngineFirefox, EngineWebkit:
	default:
		return nil, fmt.Errorf("unknown engine: %q", cfg.Engine)
	}

	if r.Viewport.Width <= 0 || r.Viewport.Height <= 0 {
		r.Viewport = Viewport{Width: 1280, Height: 800}
	}

	r.Timeout = 30 * time.Second
	if cfg.TimeoutMs > 0 {
		r.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	if r.DialogPolicy == "" {
		r.DialogPolicy = DialogAccept
	}
	switch r.DialogPolicy {
	case DialogAccept, DialogDismiss:
	default:
		return nil, fmt.Errorf("unknown dialogPolicy: %q", cfg.DialogPolicy)
	}

	if r.CDPPort == 0 {
		r.CDPPort = DefaultCDPPort
	}

	return r, nil
}

// LoadConfig reads a YAML config file and resolves it.
func LoadConfig(path string) (*ResolvedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return ResolveConfig(cfg)
}
