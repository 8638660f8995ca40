package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"

	"github.com/prowlio/prowl/internal/humanize"
)

// CDPBackend implements the capability contract directly over the
// Chrome DevTools Protocol: it launches the engine itself, attaches a
// remote allocator to the fixed debugging port, and builds every
// interaction from Page/DOM/Runtime/Network primitives instead of a
// high-level driver API.
type CDPBackend struct {
	name   string
	exe    Executable
	cfg    *ResolvedConfig
	logger *slog.Logger
	sim    *humanize.Simulator

	state        sessionState
	intervention *Intervention
	netmon       *networkMonitor

	engine        *RunningEngine
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// mouse is the last synthetic pointer position, the start of the
	// next humanized path.
	mouse humanize.Point

	// navEvents receives a token per observed main-frame navigation.
	navEvents chan struct{}

	closed bool
}

func newCDPBackend(name string, exe Executable, cfg *ResolvedConfig, logger *slog.Logger, sim *humanize.Simulator) *CDPBackend {
	sessionID := uuid.New().String()[:8]
	log := logger.With("component", name, "session", sessionID)
	return &CDPBackend{
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

func (b *CDPBackend) Name() string { return b.name }

// Initialize launches the engine, waits for the debugging port and
// enables the protocol domains. Returns false instead of an error so
// the caller can start over with a different backend.
func (b *CDPBackend) Initialize(ctx context.Context) bool {
	engine, err := launchEngine(b.exe, b.cfg)
	if err != nil {
		b.logger.Error("engine launch failed", "executable", b.exe.Path, "err", err)
		return false
	}
	b.engine = engine

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", b.cfg.CDPPort)
	wsURL, err := debuggerWebSocketURL(endpoint, 3*time.Second)
	if err != nil {
		b.logger.Error("debugger url lookup failed", "endpoint", endpoint, "err", err)
		_ = engine.stop(2 * time.Second)
		return false
	}

	b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), wsURL)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	b.listen()

	err = chromedp.Run(b.browserCtx,
		page.Enable(),
		dom.Enable(),
		network.Enable(),
		cdpruntime.Enable(),
		chromedp.EmulateViewport(int64(b.cfg.Viewport.Width), int64(b.cfg.Viewport.Height)),
	)
	if err != nil {
		b.logger.Error("domain enable failed", "err", err)
		b.teardown()
		return false
	}

	b.state.markInitialized()
	b.logger.Info("protocol backend ready",
		"engine", string(b.exe.Kind), "pid", engine.PID, "port", b.cfg.CDPPort)
	return true
}

// listen subscribes to the protocol events feeding the network-idle
// counter, navigation signals and dialog auto-handling.
func (b *CDPBackend) listen() {
	chromedp.ListenTarget(b.browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			b.netmon.requestStarted(string(e.RequestID))
		case *network.EventLoadingFinished:
			b.netmon.requestFinished(string(e.RequestID))
		case *network.EventLoadingFailed:
			b.netmon.requestFinished(string(e.RequestID))
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				b.state.setURL(e.Frame.URL)
				b.notifyNavigation()
			}
		case *page.EventJavascriptDialogOpening:
			blocked := &DialogBlockedError{Message: e.Message, Action: b.cfg.DialogPolicy}
			b.logger.Warn("dialog auto-handled", "err", blocked)
			go func() {
				action := page.HandleJavaScriptDialog(b.cfg.DialogPolicy == DialogAccept)
				_ = chromedp.Run(b.browserCtx, action)
			}()
		}
	})
}

func (b *CDPBackend) notifyNavigation() {
	b.intervention.NotifyNavigation()
	select {
	case b.navEvents <- struct{}{}:
	default:
	}
}

// run executes protocol actions against the live session under the
// configured timeout. The caller context is consulted up front; a
// timed-out protocol call is abandoned logically even if the engine
// finishes it later.
func (b *CDPBackend) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.state.isInitialized() || b.closed {
		return fmt.Errorf("backend not initialized")
	}
	runCtx, cancel := context.WithTimeout(b.browserCtx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// eval evaluates a script and decodes its JSON result into out. A null
// result leaves out untouched and returns errNullResult.
var errNullResult = fmt.Errorf("script returned null")

func (b *CDPBackend) eval(ctx context.Context, script string, out any) error {
	var raw json.RawMessage
	err := b.run(ctx, b.cfg.Timeout, chromedp.Evaluate(script, &raw))
	if err != nil {
		return &EvaluationError{Script: script, Err: err}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return errNullResult
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &EvaluationError{Script: script, Err: err}
	}
	return nil
}

func (b *CDPBackend) Navigate(ctx context.Context, rawURL string) bool {
	url := normalizeURL(rawURL)
	actionPause(ctx, b.sim, &b.state)

	// The frame listener rewrites currentURL while the load is in
	// flight; capture the origin now so history records it.
	prev := b.state.url()
	err := b.run(ctx, b.cfg.Timeout, chromedp.Navigate(url))
	if err != nil {
		navErr := &NavigationError{URL: url, Err: err}
		b.logger.Warn("navigation failed, session stays open", "err", navErr)
		return false
	}

	b.state.recordNavigation(prev, url)
	b.intervention.checkObstruction(ctx, b.evalString)
	return true
}

// Back pops the history stack and loads the entry. The load replaces
// currentURL without pushing, matching browser back semantics.
func (b *CDPBackend) Back(ctx context.Context) bool {
	prev, ok := b.state.popHistory()
	if !ok {
		b.logger.Debug("back requested with empty history")
		return false
	}
	actionPause(ctx, b.sim, &b.state)

	if err := b.run(ctx, b.cfg.Timeout, chromedp.Navigate(prev)); err != nil {
		b.state.pushHistory(prev)
		b.logger.Warn("back navigation failed",
			"err", &NavigationError{URL: prev, Err: err})
		return false
	}
	b.state.setURL(prev)
	return true
}

// evalString adapts eval for the obstruction checker.
func (b *CDPBackend) evalString(ctx context.Context, script string) (any, error) {
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

// point is the decoded center returned by jsRectOf.
type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (b *CDPBackend) Click(ctx context.Context, target string) bool {
	b.intervention.checkObstruction(ctx, b.evalString)
	actionPause(ctx, b.sim, &b.state)

	steps := b.clickSteps(target)
	res, err := runCascade(ctx, b.logger, target, steps)
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

// clickSteps builds the full seven-strategy click cascade. Each step
// locates a fresh center point and dispatches a humanized click; a
// failed lookup leaves no state behind for the next step to trip on.
func (b *CDPBackend) clickSteps(target string) []cascadeStep {
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
		strategy := f.strategy
		if strategy == StrategySelector && !looksLikeSelector(target) {
			continue
		}
		steps = append(steps, cascadeStep{
			strategy: strategy,
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

// clickAt moves the synthetic pointer along a Bézier path and dispatches
// pointer-down/up at the destination.
func (b *CDPBackend) clickAt(ctx context.Context, x, y float64) error {
	dest := humanize.Point{X: x, Y: y}
	path := b.sim.MousePath(b.mouse, dest, b.sim.PathPoints())

	return b.run(ctx, b.cfg.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, p := range path {
			if err := input.DispatchMouseEvent(input.MouseMoved, p.X, p.Y).Do(ctx); err != nil {
				return err
			}
			_ = b.sim.Delay(ctx, 2*time.Millisecond, 9*time.Millisecond)
		}
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx); err != nil {
			return err
		}
		_ = b.sim.Delay(ctx, 20*time.Millisecond, 90*time.Millisecond)
		if err := input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx); err != nil {
			return err
		}
		b.mouse = dest
		return nil
	}))
}

func (b *CDPBackend) Type(ctx context.Context, target, text string) bool {
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
		strategy := f.strategy
		if strategy == StrategySelector && !looksLikeSelector(target) {
			continue
		}
		steps = append(steps, cascadeStep{
			strategy: strategy,
			run: func(ctx context.Context) error {
				return b.typeInto(ctx, finder, text)
			},
		})
	}

	_, err := runCascade(ctx, b.logger, target, steps)
	if err != nil {
		b.logger.Warn("type failed", "target", truncate(target, 60), "err", err)
		return false
	}
	return true
}

// typeInto focuses and clears the found element, replays a humanized
// keystroke plan, then verifies the committed value. Mistakes and
// micro-pauses are cosmetic: a post-check force-sets the exact text if
// the replay drifted.
func (b *CDPBackend) typeInto(ctx context.Context, finder, text string) error {
	var focused bool
	if err := b.eval(ctx, jsFocusAndClear(finder), &focused); err != nil {
		return err
	}
	if !focused {
		return fmt.Errorf("element did not take focus")
	}

	plan := b.sim.Keystrokes(text)
	err := b.run(ctx, b.cfg.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, k := range plan {
			if k.Pause > 0 {
				_ = b.sim.Delay(ctx, k.Pause, k.Pause)
			}
			if k.Backspace {
				if err := dispatchBackspace(ctx); err != nil {
					return err
				}
				continue
			}
			if err := input.InsertText(string(k.Rune)).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return err
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

func dispatchBackspace(ctx context.Context) error {
	if err := input.DispatchKeyEvent(input.KeyRawDown).
		WithKey("Backspace").WithCode("Backspace").
		WithWindowsVirtualKeyCode(8).WithNativeVirtualKeyCode(8).
		Do(ctx); err != nil {
		return err
	}
	return input.DispatchKeyEvent(input.KeyUp).
		WithKey("Backspace").WithCode("Backspace").
		Do(ctx)
}

// keyNames maps contract key names onto chromedp keyboard runes.
var keyNames = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowup":    kb.ArrowUp,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
	"home":       kb.Home,
	"end":        kb.End,
}

func (b *CDPBackend) PressKey(ctx context.Context, key string) bool {
	actionPause(ctx, b.sim, &b.state)

	seq, ok := keyNames[strings.ToLower(key)]
	if !ok {
		seq = key
	}
	if err := b.run(ctx, b.cfg.Timeout, chromedp.KeyEvent(seq)); err != nil {
		b.logger.Warn("key press failed", "key", key, "err", err)
		return false
	}
	return true
}

func (b *CDPBackend) Screenshot(ctx context.Context, path string) (string, error) {
	if err := ensureParentDir(path); err != nil {
		return "", err
	}
	var buf []byte
	if err := b.run(ctx, b.cfg.Timeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	b.logger.Debug("screenshot saved", "path", path, "bytes", len(buf))
	return path, nil
}

func (b *CDPBackend) Wait(ctx context.Context, cond WaitFor) error {
	switch {
	case cond.Duration > 0:
		return b.sim.Delay(ctx, cond.Duration, cond.Duration+250*time.Millisecond)

	case cond.Class == WaitLoad:
		return b.waitReadyState(ctx)

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
		return b.waitVisible(ctx, cond.Target)
	}
	return fmt.Errorf("empty wait condition")
}

func (b *CDPBackend) waitReadyState(ctx context.Context) error {
	deadline := time.Now().Add(b.cfg.Timeout)
	for time.Now().Before(deadline) {
		var state string
		if err := b.eval(ctx, `document.readyState`, &state); err == nil && state == "complete" {
			return nil
		}
		if err := b.sim.Delay(ctx, 100*time.Millisecond, 100*time.Millisecond); err != nil {
			return err
		}
	}
	return &TimeoutError{What: "load", Elapsed: b.cfg.Timeout}
}

// waitVisible polls the visibility probe across the text strategies.
func (b *CDPBackend) waitVisible(ctx context.Context, target string) error {
	probe := visibleProbe(target)
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
	return &TimeoutError{What: fmt.Sprintf("%q visible", target), Elapsed: b.cfg.Timeout}
}

// visibleProbe combines the cheap locator strategies into one boolean
// visibility expression.
func visibleProbe(target string) string {
	probes := []string{
		jsVisible(finderExactText(target)),
		jsVisible(finderAttribute(target)),
		jsVisible(finderScan(target)),
	}
	if looksLikeSelector(target) {
		probes = append([]string{jsVisible(finderSelector(target))}, probes...)
	}
	return "(" + strings.Join(probes, ") || (") + ")"
}

func (b *CDPBackend) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	expr := script
	if len(args) > 0 {
		encoded := make([]string, len(args))
		for i, a := range args {
			raw, err := json.Marshal(a)
			if err != nil {
				return nil, &EvaluationError{Script: script, Err: err}
			}
			encoded[i] = string(raw)
		}
		expr = fmt.Sprintf("(%s)(%s)", script, strings.Join(encoded, ", "))
	}

	var result any
	err := b.eval(ctx, expr, &result)
	if err == errNullResult {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *CDPBackend) CurrentURL() string { return b.state.url() }

func (b *CDPBackend) Title(ctx context.Context) (string, error) {
	var title string
	if err := b.run(ctx, b.cfg.Timeout, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (b *CDPBackend) ExtractContent(ctx context.Context, kind ContentKind) (*PageContent, error) {
	title, _ := b.Title(ctx)
	content := &PageContent{URL: b.state.url(), Title: title}

	switch kind {
	case ContentText:
		if err := b.eval(ctx, extractTextScript, &content.Text); err != nil && err != errNullResult {
			return nil, err
		}
	case ContentHTML:
		if err := b.run(ctx, b.cfg.Timeout, chromedp.OuterHTML("html", &content.HTML)); err != nil {
			return nil, err
		}
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

func (b *CDPBackend) SaveSession(ctx context.Context, path string) error {
	var cookies []Cookie
	err := b.run(ctx, b.cfg.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: string(c.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("collect cookies: %w", err)
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

func (b *CDPBackend) LoadSession(ctx context.Context, path string) error {
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}

	params := make([]*network.CookieParam, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		params = append(params, p)
	}

	err = b.run(ctx, b.cfg.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}

	if len(snap.LocalStorage) > 0 {
		var ok bool
		_ = b.eval(ctx, jsRestoreLocalStorage(snap.LocalStorage), &ok)
	}
	return nil
}

func (b *CDPBackend) Close(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.teardown()
	b.logger.Info("protocol backend closed")
	return nil
}

func (b *CDPBackend) teardown() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	if b.engine != nil {
		_ = b.engine.stop(5 * time.Second)
		b.engine = nil
	}
}
