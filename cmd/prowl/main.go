package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prowlio/prowl/internal/browser"
)

var (
	flagConfig   string
	flagBrowser  string
	flagEngine   string
	flagHeadless bool
	flagLowLevel bool
	flagTimeout  time.Duration
	flagProxy    string
	flagSeed     int64
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "prowl",
	Short: "Drive real browsers through interchangeable backends",
	Long: `Prowl drives Chrome, Edge or bundled engines through a single
capability contract, with humanized input and layered element lookup.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML config file")
	pf.StringVar(&flagBrowser, "browser", "", "backend: auto, chrome, edge, playwright")
	pf.StringVar(&flagEngine, "engine", "", "bundled engine: chromium, firefox, webkit")
	pf.BoolVar(&flagHeadless, "headless", true, "run without a visible window")
	pf.BoolVar(&flagLowLevel, "low-level", false, "drive chrome/edge over the raw protocol")
	pf.DurationVar(&flagTimeout, "timeout", 0, "navigation and wait timeout")
	pf.StringVar(&flagProxy, "proxy", "", "proxy server, set at launch only")
	pf.Int64Var(&flagSeed, "seed", 0, "fixed randomness seed for reproducible runs")
	pf.BoolVar(&flagVerbose, "verbose", false, "debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig merges the optional config file with command-line flags.
// Flags win.
func loadConfig() (*browser.ResolvedConfig, error) {
	cfg := browser.Config{}
	if flagConfig != "" {
		resolved, err := browser.LoadConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = browser.Config{
			BrowserType:         resolved.BrowserType,
			UseLowLevelProtocol: resolved.UseLowLevelProtocol,
			Engine:              resolved.Engine,
			ExecutablePath:      resolved.ExecutablePath,
			Headless:            resolved.Headless,
			Viewport:            resolved.Viewport,
			TimeoutMs:           int(resolved.Timeout.Milliseconds()),
			ExtraLaunchArgs:     resolved.ExtraLaunchArgs,
			Proxy:               resolved.Proxy,
			DialogPolicy:        resolved.DialogPolicy,
			CDPPort:             resolved.CDPPort,
			UserDataDir:         resolved.UserDataDir,
			NoSandbox:           resolved.NoSandbox,
			Seed:                resolved.Seed,
		}
	}

	if flagBrowser != "" {
		cfg.BrowserType = flagBrowser
	}
	if flagEngine != "" {
		cfg.Engine = flagEngine
	}
	cfg.Headless = flagHeadless
	if flagLowLevel {
		cfg.UseLowLevelProtocol = true
	}
	if flagTimeout > 0 {
		cfg.TimeoutMs = int(flagTimeout.Milliseconds())
	}
	if flagProxy != "" {
		cfg.Proxy = flagProxy
	}
	if flagSeed != 0 {
		cfg.Seed = flagSeed
	}
	return browser.ResolveConfig(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
