package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/prowlio/prowl/internal/humanize"
)

// HybridBackend drives a system Chrome or Edge through a high-level
// driver while keeping a hand on the raw protocol: the engine is
// launched with a fixed debugging port, the websocket endpoint is
// probed directly before the driver attaches, and pages are opened
// with the stealth patches applied.
type HybridBackend struct {
	name   string
	exe    Executable
	cfg    *ResolvedConfig
	logger *slog.Logger
	sim    *humanize.Simulator

	state        sessionState
	intervention *Intervention
	netmon       *networkMonitor

	browser *rod.Browser
	page    *rod.Page

	mouse     humanize.Point
	navEvents chan struct{}

	closed bool
}

func newHybridBackend(name string, exe Executable, cfg *ResolvedConfig, logger *slog.Logger, sim *humanize.Simulator) *HybridBackend {
	sessionID := uuid.New().String()[:8]
	log := logger.With("component", name, "session", sessionID)
	return &HybridBackend{
		name:         name,
		exe:          exe,
		cfg:          cfg,
		logger:       log,
		sim:          sim,
		intervention: NewIntervention(log),
		netmon:       newNetworkMonitor(),
		navEvents:    make(chan struct{}, 4),
		mouse:        humanize.Point{X: float64(cfg.Viewport.Width) / 2, Y: float64(cfg.Viewport.Height) / 2},
	}
}

func (b *HybridBackend) Name() string { return b.name }

func (b *HybridBackend) Initialize(ctx context.Context) bool {
	userDataDir := b.cfg.UserDataDir
	if userDataDir == "" {
		userDataDir = defaultUserDataDir()
	}
	l := launcher.New().
		Bin(b.exe.Path).
		UserDataDir(userDataDir).
		Headless(b.cfg.Headless).
		Set("remote-debugging-port", fmt.Sprintf("%d", b.cfg.CDPPort)).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")
	if b.cfg.NoSandbox {
		l = l.Set("no-sandbox")
	}
	if b.cfg.Proxy != "" {
		l = l.Proxy(b.cfg.Proxy)
	}
	for _, arg := range b.cfg.ExtraLaunchArgs {
		key, value, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		l = l.Set(flags.Flag(key), value)
	}

	controlURL, err := l.Launch()
	if err != nil {
		b.logger.Error("engine launch failed", "executable", b.exe.Path, "err", err)
		return false
	}

	if err := probeDebugger(ctx, controlURL, 3*time.Second); err != nil {
		b.logger.Error("protocol probe failed", "err", err)
		l.Kill()
		return false
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		b.logger.Error("driver attach failed", "err", err)
		l.Kill()
		return false
	}
	b.browser = browser

	page, err := stealth.Page(browser)
	if err != nil {
		b.logger.Error("stealth page failed", "err", err)
		_ = browser.Close()
		return false
	}
	b.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.Viewport.Width,
		Height:            b.cfg.Viewport.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		b.logger.Warn("viewport override failed", "err", err)
	}
	_ = proto.NetworkSetUserAgentOverride{UserAgent: b.sim.UserAgent()}.Call(page)

	b.listen()

	b.state.markInitialized()
	b.logger.Info("hybrid backend ready", "engine", string(b.exe.Kind), "control", controlURL)
	return true
}

// probeDebugger opens the debugger websocket directly and exchanges one
// protocol message before any driver attaches. A dead endpoint fails
// here with a ProtocolUnavailableError instead of surfacing later as an
// opaque driver timeout.
func probeDebugger(ctx context.Context, wsURL string, timeout time.Duration) error {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return &ProtocolUnavailableError{Endpoint: wsURL, Err: err}
	}
	defer conn.Close()

	msg := map[string]any{"id": 1, "method": "Browser.getVersion"}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := conn.WriteJSON(msg); err != nil {
		return &ProtocolUnavailableError{Endpoint: wsURL, Err: err}
	}

	var reply struct {
		ID     int             `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if err := conn.ReadJSON(&reply); err != nil {
		return &ProtocolUnavailableError{Endpoint: wsURL, Err: err}
	}
	if reply.ID != 1 || len(reply.Result) == 0 {
		return &ProtocolUnavailableError{
			Endpoint: wsURL,
			Err:      fmt.Errorf("unexpected handshake reply"),
		}
	}
	return nil
}

// listen wires page events into the network-idle counter, navigation
// signals and the dialog policy.
func (b *HybridBackend) listen() {
	accept := b.cfg.DialogPolicy == DialogAccept
	go b.page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			b.netmon.requestStarted(string(e.RequestID))
		},
		func(e *proto.NetworkLoadingFinished) {
			b.netmon.requestFinished(string(e.RequestID))
		},
		func(e *proto.NetworkLoadingFailed) {
			b.netmon.requestFinished(string(e.RequestID))
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame != nil && e.Frame.ParentID == "" {
				b.state.setURL(e.Frame.URL)
				b.notifyNavigation()
			}
		},
		func(e *proto.PageJavascriptDialogOpening) {
			blocked := &DialogBlockedError{Message: e.Message, Action: b.cfg.DialogPolicy}
			b.logger.Warn("dialog auto-handled", "err", blocked)
			_ = proto.PageHandleJavaScriptDialog{Accept: accept}.Call(b.page)
		},
	)()
}

func (b *HybridBackend) notifyNavigation() {
	b.intervention.NotifyNavigation()
	select {
	case b.navEvents <- struct{}{}:
	default:
	}
}

func (b *HybridBackend) ready() bool {
	return b.state.isInitialized() && !b.closed && b.page != nil
}

// timedPage returns a page clone bound to the configured timeout.
func (b *HybridBackend) timedPage() *rod.Page {
	return b.page.Timeout(b.cfg.Timeout)
}

// eval runs a script and decodes the JSON result into out. A null
// result returns errNullResult.
func (b *HybridBackend) eval(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	res, err := b.timedPage().Eval(script)
	if err != nil {
		return &EvaluationError{Script: script, Err: err}
	}
	if res.Value.Nil() {
		return errNullResult
	}
	if out == nil {
		return nil
	}
	raw := res.Value.JSON("", "")
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &EvaluationError{Script: script, Err: err}
	}
	return nil
}

func (b *HybridBackend) evalString(ctx context.Context, script string) (any, error) {
	var s string
	err := b.eval(ctx, script, &s)
	if err == errNullResult {
		return "", nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *HybridBackend) Navigate(ctx context.Context, rawURL string) bool {
	if !b.ready() {
		return false
	}
	url := normalizeURL(rawURL)
	actionPause(ctx, b.sim, &b.state)

	// The frame listener rewrites currentURL while the load is in
	// flight; capture the origin now so history records it.
	prev := b.state.url()
	page := b.timedPage()
	if err := page.Navigate(url); err != nil {
		b.logger.Warn("navigation failed, session stays open",
			"err", &NavigationError{URL: url, Err: err})
		return false
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Debug("load wait ended early", "err", err)
	}

	b.state.recordNavigation(prev, url)
	b.intervention.checkObstruction(ctx, b.evalString)
	return true
}

// Back pops the history stack and loads the entry. The load replaces
// currentURL without pushing, matching browser back semantics.
func (b *HybridBackend) Back(ctx context.Context) bool {
	if !b.ready() {
		return false
	}
	prev, ok := b.state.popHistory()
	if !ok {
		b.logger.Debug("back requested with empty history")
		return false
	}
	actionPause(ctx, b.sim, &b.state)

	page := b.timedPage()
	if err := page.Navigate(prev); err != nil {
		b.state.pushHistory(prev)
		b.logger.Warn("back navigation failed",
			"err", &NavigationError{URL: prev, Err: err})
		return false
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Debug("load wait ended early", "err", err)
	}
	b.state.setURL(prev)
	return true
}

func (b *HybridBackend) Click(ctx context.Context, target string) bool {
	if !b.ready() {
		return false
	}
	b.intervention.checkObstruction(ctx, b.evalString)
	actionPause(ctx, b.sim, &b.state)

	res, err := runCascade(ctx, b.logger, target, b.clickSteps(target))
	if err != nil {
		b.logger.Warn("click failed", "target", truncate(target, 60), "err", err)
		return false
	}
	if !res.Verified {
		b.logger.Warn("click landed on heuristic coordinates, element unverified",
			"target", truncate(target, 60))
	}
	return true
}

// clickSteps resolves through the native locators first, then through
// the injected finders, and finally the coordinate heuristic. Native
// lookups use a short per-step timeout so later strategies still get a
// turn within the overall budget.
func (b *HybridBackend) clickSteps(target string) []cascadeStep {
	var steps []cascadeStep

	if looksLikeSelector(target) {
		steps = append(steps, cascadeStep{
			strategy: StrategySelector,
			run: func(ctx context.Context) error {
				el, err := b.page.Timeout(2 * time.Second).Element(target)
				if err != nil {
					return err
				}
				return b.clickElement(ctx, el)
			},
		})
	}

	steps = append(steps, cascadeStep{
		strategy: StrategyText,
		run: func(ctx context.Context) error {
			pattern := "/^\\s*" + regexpQuote(target) + "\\s*$/i"
			el, err := b.page.Timeout(2 * time.Second).ElementR("*", pattern)
			if err != nil {
				return err
			}
			return b.clickElement(ctx, el)
		},
	})

	injected := []struct {
		strategy Strategy
		finder   string
	}{
		{StrategyRole, finderRole(target)},
		{StrategyAttribute, finderAttribute(target)},
		{StrategyPath, finderPath(target)},
		{StrategyScan, finderScan(target)},
	}
	for _, f := range injected {
		finder := f.finder
		steps = append(steps, cascadeStep{
			strategy: f.strategy,
			run: func(ctx context.Context) error {
				var pt point
				if err := b.eval(ctx, jsRectOf(finder), &pt); err != nil {
					return err
				}
				return b.clickAt(ctx, pt.X, pt.Y)
			},
		})
	}

	if x, y, ok := hintPosition(target, b.cfg.Viewport); ok {
		steps = append(steps, cascadeStep{
			strategy:   StrategyCoordinate,
			unverified: true,
			run: func(ctx context.Context) error {
				return b.clickAt(ctx, x, y)
			},
		})
	}
	return steps
}

func (b *HybridBackend) clickElement(ctx context.Context, el *rod.Element) error {
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	shape, err := el.Shape()
	if err != nil {
		return err
	}
	center := shape.OnePointInside()
	if center == nil {
		return fmt.Errorf("element has no visible box")
	}
	return b.clickAt(ctx, center.X, center.Y)
}

// clickAt walks the pointer along a humanized path before pressing.
func (b *HybridBackend) clickAt(ctx context.Context, x, y float64) error {
	dest := humanize.Point{X: x, Y: y}
	path := b.sim.MousePath(b.mouse, dest, b.sim.PathPoints())

	mouse := b.page.Mouse
	for _, p := range path {
		if err := mouse.MoveTo(proto.Point{X: p.X, Y: p.Y}); err != nil {
			return err
		}
		_ = b.sim.Delay(ctx, 2*time.Millisecond, 9*time.Millisecond)
	}
	if err := mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	_ = b.sim.Delay(ctx, 20*time.Millisecond, 90*time.Millisecond)
	if err := mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	b.mouse = dest
	return nil
}

func (b *HybridBackend) Type(ctx context.Context, target, text string) bool {
	if !b.ready() {
		return false
	}
	b.intervention.checkObstruction(ctx, b.evalString)
	actionPause(ctx, b.sim, &b.state)

	finders := []struct {
		strategy Strategy
		finder   string
	}{
		{StrategySelector, finderSelector(target)},
		{StrategyText, finderExactText(target)},
		{StrategyRole, finderRole(target)},
		{StrategyAttribute, finderAttribute(target)},
		{StrategyPath, finderPath(target)},
		{StrategyScan, finderScan(target)},
	}

	var steps []cascadeStep
	for _, f := range finders {
		finder := f.finder
		if f.strategy == StrategySelector && !looksLikeSelector(target) {
			continue
		}
		steps = append(steps, cascadeStep{
			strategy: f.strategy,
			run: func(ctx context.Context) error {
				return b.typeInto(ctx, finder, text)
			},
		})
	}

	if _, err := runCascade(ctx, b.logger, target, steps); err != nil {
		b.logger.Warn("type failed", "target", truncate(target, 60), "err", err)
		return false
	}
	return true
}

func (b *HybridBackend) typeInto(ctx context.Context, finder, text string) error {
	var focused bool
	if err := b.eval(ctx, jsFocusAndClear(finder), &focused); err != nil {
		return err
	}
	if !focused {
		return fmt.Errorf("element did not take focus")
	}

	for _, k := range b.sim.Keystrokes(text) {
		if k.Pause > 0 {
			_ = b.sim.Delay(ctx, k.Pause, k.Pause)
		}
		if k.Backspace {
			if err := b.page.Keyboard.Type(input.Backspace); err != nil {
				return err
			}
			continue
		}
		if err := b.page.InsertText(string(k.Rune)); err != nil {
			return err
		}
	}

	var committed string
	if err := b.eval(ctx, jsReadValue(finder), &committed); err == nil && committed == text {
		return nil
	}
	var ok bool
	if err := b.eval(ctx, jsSetValue(finder, text), &ok); err != nil || !ok {
		return fmt.Errorf("could not commit exact text")
	}
	return nil
}

// rodKeys maps contract key names onto driver key definitions.
var rodKeys = map[string]input.Key{
	"enter":      input.Enter,
	"return":     input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"home":       input.Home,
	"end":        input.End,
}

func (b *HybridBackend) PressKey(ctx context.Context, key string) bool {
	if !b.ready() {
		return false
	}
	actionPause(ctx, b.sim, &b.state)

	k, ok := rodKeys[strings.ToLower(key)]
	if !ok {
		runes := []rune(key)
		if len(runes) != 1 {
			b.logger.Warn("unknown key", "key", key)
			return false
		}
		k = input.Key(runes[0])
	}
	if err := b.page.Keyboard.Type(k); err != nil {
		b.logger.Warn("key press failed", "key", key, "err", err)
		return false
	}
	return true
}

func (b *HybridBackend) Screenshot(ctx context.Context, path string) (string, error) {
	if !b.ready() {
		return "", fmt.Errorf("backend not initialized")
	}
	if err := ensureParentDir(path); err != nil {
		return "", err
	}
	buf, err := b.timedPage().Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	b.logger.Debug("screenshot saved", "path", path, "bytes", len(buf))
	return path, nil
}

func (b *HybridBackend) Wait(ctx context.Context, cond WaitFor) error {
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	switch {
	case cond.Duration > 0:
		return b.sim.Delay(ctx, cond.Duration, cond.Duration+250*time.Millisecond)

	case cond.Class == WaitLoad:
		if err := b.timedPage().WaitLoad(); err != nil {
			return &TimeoutError{What: "load", Elapsed: b.cfg.Timeout}
		}
		return nil

	case cond.Class == WaitNetworkIdle:
		return b.netmon.waitIdle(ctx, b.cfg.Timeout)

	case cond.Class == WaitNavigation:
		timer := time.NewTimer(b.cfg.Timeout)
		defer timer.Stop()
		select {
		case <-b.navEvents:
			return nil
		case <-timer.C:
			return &TimeoutError{What: "navigation", Elapsed: b.cfg.Timeout}
		case <-ctx.Done():
			return ctx.Err()
		}

	case cond.Target != "":
		probe := visibleProbe(cond.Target)
		deadline := time.Now().Add(b.cfg.Timeout)
		for time.Now().Before(deadline) {
			var visible bool
			if err := b.eval(ctx, probe, &visible); err == nil && visible {
				return nil
			}
			if err := b.sim.Delay(ctx, 150*time.Millisecond, 150*time.Millisecond); err != nil {
				return err
			}
		}
		return &TimeoutError{What: fmt.Sprintf("%q visible", cond.Target), Elapsed: b.cfg.Timeout}
	}
	return fmt.Errorf("empty wait condition")
}

func (b *HybridBackend) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	if !b.ready() {
		return nil, fmt.Errorf("backend not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := b.timedPage().Eval(script, args...)
	if err != nil {
		return nil, &EvaluationError{Script: script, Err: err}
	}
	if res.Value.Nil() {
		return nil, nil
	}
	return res.Value.Val(), nil
}

func (b *HybridBackend) CurrentURL() string { return b.state.url() }

func (b *HybridBackend) Title(ctx context.Context) (string, error) {
	if !b.ready() {
		return "", fmt.Errorf("backend not initialized")
	}
	info, err := b.timedPage().Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (b *HybridBackend) ExtractContent(ctx context.Context, kind ContentKind) (*PageContent, error) {
	if !b.ready() {
		return nil, fmt.Errorf("backend not initialized")
	}
	title, _ := b.Title(ctx)
	content := &PageContent{URL: b.state.url(), Title: title}

	switch kind {
	case ContentText:
		if err := b.eval(ctx, extractTextScript, &content.Text); err != nil && err != errNullResult {
			return nil, err
		}
	case ContentHTML:
		html, err := b.timedPage().HTML()
		if err != nil {
			return nil, err
		}
		content.HTML = html
	case ContentLinks:
		if err := b.eval(ctx, extractLinksScript, &content.Links); err != nil && err != errNullResult {
			return nil, err
		}
	case ContentForms:
		if err := b.eval(ctx, extractFormsScript, &content.Forms); err != nil && err != errNullResult {
			return nil, err
		}
	case ContentFull:
		_ = b.eval(ctx, extractTextScript, &content.Text)
		_ = b.eval(ctx, extractLinksScript, &content.Links)
		_ = b.eval(ctx, extractFormsScript, &content.Forms)
	default:
		return nil, fmt.Errorf("unknown content kind: %q", kind)
	}
	return content, nil
}

func (b *HybridBackend) SaveSession(ctx context.Context, path string) error {
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	raw, err := b.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("collect cookies: %w", err)
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}

	var dump map[string]string
	_ = b.eval(ctx, localStorageDumpScript, &dump)

	return writeSnapshot(path, &sessionSnapshot{
		SavedAt:      time.Now().UTC(),
		URL:          b.state.url(),
		Cookies:      cookies,
		LocalStorage: dump,
	})
}

func (b *HybridBackend) LoadSession(ctx context.Context, path string) error {
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}

	params := make([]*proto.NetworkCookieParam, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = proto.NetworkCookieSameSite(c.SameSite)
		}
		params = append(params, p)
	}
	if err := b.browser.SetCookies(params); err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}

	if len(snap.LocalStorage) > 0 {
		var ok bool
		_ = b.eval(ctx, jsRestoreLocalStorage(snap.LocalStorage), &ok)
	}
	return nil
}

func (b *HybridBackend) Close(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	b.logger.Info("hybrid backend closed")
	return nil
}

// regexpQuote escapes target text for use inside a driver text-match
// pattern.
func regexpQuote(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$/`, r) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
