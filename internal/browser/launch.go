package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// RunningEngine is a browser process the protocol driver launched.
type RunningEngine struct {
	PID         int
	Executable  Executable
	UserDataDir string
	CDPPort     int
	StartedAt   time.Time
	cmd         *exec.Cmd
}

// launchEngine starts an engine with a local debugging port and polls
// the port with a bounded deadline until the protocol answers. The poll
// replaces a blocking sleep so a broken launch fails fast.
func launchEngine(exe Executable, cfg *ResolvedConfig) (*RunningEngine, error) {
	userDataDir := cfg.UserDataDir
	if userDataDir == "" {
		userDataDir = defaultUserDataDir()
	}
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return nil, fmt.Errorf("create user data dir: %w", err)
	}

	args := buildLaunchArgs(userDataDir, cfg)
	cmd := exec.Command(exe.Path, args...)
	cmd.Env = append(os.Environ(), "HOME="+os.Getenv("HOME"))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", exe.Kind, err)
	}

	running := &RunningEngine{
		PID:         cmd.Process.Pid,
		Executable:  exe,
		UserDataDir: userDataDir,
		CDPPort:     cfg.CDPPort,
		StartedAt:   time.Now(),
		cmd:         cmd,
	}

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", cfg.CDPPort)
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if protocolReachable(endpoint, 500*time.Millisecond) {
			return running, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	_ = cmd.Process.Kill()
	return nil, &ProtocolUnavailableError{
		Endpoint: endpoint,
		Err:      fmt.Errorf("port %d not accepting connections within 15s", cfg.CDPPort),
	}
}

// stop signals the engine and force-kills after the grace period.
func (r *RunningEngine) stop(timeout time.Duration) error {
	if r == nil || r.cmd == nil || r.cmd.Process == nil {
		return nil
	}

	_ = r.cmd.Process.Signal(os.Interrupt)

	done := make(chan error, 1)
	go func() { done <- r.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return r.cmd.Process.Kill()
	}
}

// protocolReachable checks whether the debugging endpoint answers.
func protocolReachable(endpoint string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", versionURL(endpoint), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// debuggerWebSocketURL fetches the browser-level CDP WebSocket URL.
func debuggerWebSocketURL(endpoint string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", versionURL(endpoint), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", err
	}
	if version.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("no webSocketDebuggerUrl in version response")
	}
	return version.WebSocketDebuggerURL, nil
}

func versionURL(endpoint string) string {
	return strings.TrimSuffix(endpoint, "/") + "/json/version"
}

func buildLaunchArgs(userDataDir string, cfg *ResolvedConfig) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cfg.CDPPort),
		fmt.Sprintf("--user-data-dir=%s", userDataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-component-update",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--disable-blink-features=AutomationControlled",
		"--password-store=basic",
	}

	if cfg.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if cfg.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}
	if cfg.Proxy != "" {
		args = append(args, "--proxy-server="+cfg.Proxy)
	}
	args = append(args, cfg.ExtraLaunchArgs...)

	// A blank tab guarantees at least one target exists to attach to.
	args = append(args, "about:blank")
	return args
}

func defaultUserDataDir() string {
	if dir := os.Getenv("PROWL_DATA_DIR"); dir != "" {
		return dir
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		cache = os.TempDir()
	}
	return filepath.Join(cache, "prowl", "user-data")
}
