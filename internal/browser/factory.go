package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/prowlio/prowl/internal/humanize"
)

// NewBackend builds the backend the configuration asks for without
// starting it. An explicit browserType that the machine cannot satisfy
// is an error; auto selection prefers a system Chrome over Edge and
// falls back to the bundled-engine backend, which is always available.
func NewBackend(cfg *ResolvedConfig, logger *slog.Logger) (Backend, error) {
	return newBackendFrom(cfg, logger, Detect())
}

// newBackendFrom is the report-injected core of NewBackend, split out
// so selection logic is testable without probing the machine.
func newBackendFrom(cfg *ResolvedConfig, logger *slog.Logger, report *CapabilityReport) (Backend, error) {
	sim := newSimulator(cfg)

	switch cfg.BrowserType {
	case TypePlaywright:
		return newPlaywrightBackend(cfg, logger, sim), nil

	case TypeChrome:
		if cfg.ExecutablePath != "" {
			exe := Executable{Kind: EngineKindChrome, Path: cfg.ExecutablePath}
			return newEngineBackend(exe, BackendCDPChrome, cfg, logger, sim), nil
		}
		exe := report.chromeExecutable()
		if exe == nil {
			return nil, fmt.Errorf("no chrome-family executable found on this machine")
		}
		return newEngineBackend(*exe, BackendCDPChrome, cfg, logger, sim), nil

	case TypeEdge:
		if cfg.ExecutablePath != "" {
			exe := Executable{Kind: EngineKindEdge, Path: cfg.ExecutablePath}
			return newEngineBackend(exe, BackendCDPEdge, cfg, logger, sim), nil
		}
		exe := report.edgeExecutable()
		if exe == nil {
			return nil, fmt.Errorf("no edge executable found on this machine")
		}
		return newEngineBackend(*exe, BackendCDPEdge, cfg, logger, sim), nil

	case TypeAuto, "":
		if exe := report.chromeExecutable(); exe != nil {
			return newEngineBackend(*exe, BackendCDPChrome, cfg, logger, sim), nil
		}
		if exe := report.edgeExecutable(); exe != nil {
			return newEngineBackend(*exe, BackendCDPEdge, cfg, logger, sim), nil
		}
		return newPlaywrightBackend(cfg, logger, sim), nil

	default:
		return nil, fmt.Errorf("unknown browser type: %q", cfg.BrowserType)
	}
}

// newEngineBackend wraps a detected system executable in either the raw
// protocol backend or the hybrid driver backend, per configuration.
func newEngineBackend(exe Executable, cdpName string, cfg *ResolvedConfig, logger *slog.Logger, sim *humanize.Simulator) Backend {
	if cfg.UseLowLevelProtocol {
		return newCDPBackend(cdpName, exe, cfg, logger, sim)
	}
	return newHybridBackend(BackendHybrid, exe, cfg, logger, sim)
}

func newSimulator(cfg *ResolvedConfig) *humanize.Simulator {
	if cfg.Seed != 0 {
		return humanize.New(rand.NewSource(cfg.Seed))
	}
	return humanize.New(nil)
}

// Connect builds and starts a backend. When selection was automatic
// and the chosen system engine fails to come up, the bundled-engine
// backend gets one more try before giving up.
func Connect(ctx context.Context, cfg *ResolvedConfig, logger *slog.Logger) (Backend, error) {
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	if backend.Initialize(ctx) {
		return backend, nil
	}

	auto := cfg.BrowserType == TypeAuto || cfg.BrowserType == ""
	if auto && backend.Name() != BackendPlaywright {
		logger.Warn("system engine failed to start, falling back to bundled engines",
			"backend", backend.Name())
		fallback := newPlaywrightBackend(cfg, logger, newSimulator(cfg))
		if fallback.Initialize(ctx) {
			return fallback, nil
		}
	}
	return nil, fmt.Errorf("no backend could be initialized")
}
