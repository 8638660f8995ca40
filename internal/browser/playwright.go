package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/prowlio/prowl/internal/humanize"
)

var (
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

// getPlaywright starts the shared driver process once, installing the
// bundled engines on first use.
func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		if err := playwright.Install(); err != nil {
			pwErr = fmt.Errorf("install driver engines: %w", err)
			return
		}
		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("start driver: %w", err)
			return
		}
		pwInstance = pw
	})
	return pwInstance, pwErr
}

// PlaywrightBackend is the always-available fallback: it drives the
// driver's own bundled engines, so it needs no system browser at all.
// It is also the only backend offering firefox and webkit.
type PlaywrightBackend struct {
	cfg    *ResolvedConfig
	logger *slog.Logger
	sim    *humanize.Simulator

	state        sessionState
	intervention *Intervention

	browser playwright.Browser
	browCtx playwright.BrowserContext
	page    playwright.Page

	mouse     humanize.Point
	navEvents chan struct{}

	closed bool
}

func newPlaywrightBackend(cfg *ResolvedConfig, logger *slog.Logger, sim *humanize.Simulator) *PlaywrightBackend {
	sessionID := uuid.New().String()[:8]
	log := logger.With("component", BackendPlaywright, "session", sessionID)
	return &PlaywrightBackend{
		cfg:          cfg,
		logger:       log,
		sim:          sim,
		intervention: NewIntervention(log),
		navEvents:    make(chan struct{}, 4),
		mouse:        humanize.Point{X: float64(cfg.Viewport.Width) / 2, Y: float64(cfg.Viewport.Height) / 2},
	}
}

func (b *PlaywrightBackend) Name() string { return BackendPlaywright }

func (b *PlaywrightBackend) Initialize(ctx context.Context) bool {
	pw, err := getPlaywright()
	if err != nil {
		b.logger.Error("driver start failed", "err", err)
		return false
	}

	var engine playwright.BrowserType
	switch b.cfg.Engine {
	case EngineFirefox:
		engine = pw.Firefox
	case EngineWebkit:
		engine = pw.WebKit
	default:
		engine = pw.Chromium
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.cfg.Headless),
	}
	if b.cfg.Engine == EngineChromium {
		args := []string{"--disable-blink-features=AutomationControlled"}
		if b.cfg.NoSandbox {
			args = append(args, "--no-sandbox")
		}
		args = append(args, b.cfg.ExtraLaunchArgs...)
		launchOpts.Args = args
	}
	if b.cfg.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(b.cfg.ExecutablePath)
	}
	// The proxy binds to the browser process. Changing it means a new
	// backend, not a new request.
	if b.cfg.Proxy != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: b.cfg.Proxy}
	}

	browser, err := engine.Launch(launchOpts)
	if err != nil {
		b.logger.Error("engine launch failed", "engine", b.cfg.Engine, "err", err)
		return false
	}
	b.browser = browser

	browCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  b.cfg.Viewport.Width,
			Height: b.cfg.Viewport.Height,
		},
		UserAgent: playwright.String(b.sim.UserAgent()),
	})
	if err != nil {
		b.logger.Error("context create failed", "err", err)
		_ = browser.Close()
		return false
	}
	b.browCtx = browCtx

	page, err := browCtx.NewPage()
	if err != nil {
		b.logger.Error("page create failed", "err", err)
		_ = browser.Close()
		return false
	}
	b.page = page
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))

	b.listen()

	b.state.markInitialized()
	b.logger.Info("driver backend ready", "engine", b.cfg.Engine)
	return true
}

func (b *PlaywrightBackend) listen() {
	accept := b.cfg.DialogPolicy == DialogAccept
	b.page.OnDialog(func(d playwright.Dialog) {
		blocked := &DialogBlockedError{Message: d.Message(), Action: b.cfg.DialogPolicy}
		b.logger.Warn("dialog auto-handled", "err", blocked)
		if accept {
			_ = d.Accept()
		} else {
			_ = d.Dismiss()
		}
	})
	b.page.OnFrameNavigated(func(f playwright.Frame) {
		if f.ParentFrame() == nil {
			b.state.setURL(f.URL())
			b.notifyNavigation()
		}
	})
}

func (b *PlaywrightBackend) notifyNavigation() {
	b.intervention.NotifyNavigation()
	select {
	case b.navEvents <- struct{}{}:
	default:
	}
}

func (b *PlaywrightBackend) ready() bool {
	return b.state.isInitialized() && !b.closed && b.page != nil
}

func (b *PlaywrightBackend) eval(ctx context.Context, script string, out func(any)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	result, err := b.page.Evaluate(script)
	if err != nil {
		return &EvaluationError{Script: script, Err: err}
	}
	if result == nil {
		return errNullResult
	}
	if out != nil {
		out(result)
	}
	return nil
}

func (b *PlaywrightBackend) evalString(ctx context.Context, script string) (any, error) {
	var s string
	err := b.eval(ctx, script, func(v any) { s, _ = v.(string) })
	if err == errNullResult {
		return "", nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *PlaywrightBackend) Navigate(ctx context.Context, rawURL string) bool {
	if !b.ready() {
		return false
	}
	url := normalizeURL(rawURL)
	actionPause(ctx, b.sim, &b.state)

	// The frame listener rewrites currentURL while the load is in
	// flight; capture the origin now so history records it.
	prev := b.state.url()
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(b.cfg.Timeout.Milliseconds())),
	})
	if err != nil {
		b.logger.Warn("navigation failed, session stays open",
			"err", &NavigationError{URL: url, Err: err})
		return false
	}

	b.state.recordNavigation(prev, url)
	b.intervention.checkObstruction(ctx, b.evalString)
	return true
}

// Back pops the history stack and loads the entry. It reloads through
// Goto rather than the driver's native back so the session's own
// history stays the source of truth.
func (b *PlaywrightBackend) Back(ctx context.Context) bool {
	if !b.ready() {
		return false
	}
	prev, ok := b.state.popHistory()
	if !ok {
		b.logger.Debug("back requested with empty history")
		return false
	}
	actionPause(ctx, b.sim, &b.state)

	_, err := b.page.Goto(prev, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(b.cfg.Timeout.Milliseconds())),
	})
	if err != nil {
		b.state.pushHistory(prev)
		b.logger.Warn("back navigation failed",
			"err", &NavigationError{URL: prev, Err: err})
		return false
	}
	b.state.setURL(prev)
	return true
}

// roleCandidates are the accessible roles tried by the role strategy,
// in rough order of how often interactive targets carry them.
var roleCandidates = []*playwright.AriaRole{
	playwright.AriaRoleButton,
	playwright.AriaRoleLink,
	playwright.AriaRoleTextbox,
	playwright.AriaRoleCheckbox,
	playwright.AriaRoleRadio,
	playwright.AriaRoleCombobox,
	playwright.AriaRoleMenuitem,
	playwright.AriaRoleTab,
}

// locatorFor resolves the native-locator strategies. The injected
// strategies (scan, coordinate) are handled by the caller.
func (b *PlaywrightBackend) locatorFor(strategy Strategy, target string) (playwright.Locator, error) {
	var loc playwright.Locator
	switch strategy {
	case StrategySelector:
		loc = b.page.Locator(target)
	case StrategyText:
		loc = b.page.GetByText(target, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(true),
		})
	case StrategyRole:
		for _, role := range roleCandidates {
			candidate := b.page.GetByRole(*role, playwright.PageGetByRoleOptions{
				Name:  target,
				Exact: playwright.Bool(true),
			})
			if n, err := candidate.Count(); err == nil && n > 0 {
				return candidate.First(), nil
			}
		}
		return nil, fmt.Errorf("no role carries that accessible name")
	case StrategyAttribute:
		selector := fmt.Sprintf(
			`[aria-label*=%[1]q i], [id*=%[1]q i], [name*=%[1]q i], [placeholder*=%[1]q i], [title*=%[1]q i]`,
			target)
		loc = b.page.Locator(selector)
	case StrategyPath:
		loc = b.page.Locator(fmt.Sprintf(
			`xpath=(//*[contains(normalize-space(.), %s)])[last()]`, xpathLiteral(target)))
	default:
		return nil, fmt.Errorf("strategy %s has no native locator", strategy)
	}

	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("no match")
	}
	return loc.First(), nil
}

// xpathLiteral quotes arbitrary text for embedding in an XPath
// expression. Text containing both quote kinds falls back to concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func (b *PlaywrightBackend) Click(ctx context.Context, target string) bool {
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

func (b *PlaywrightBackend) clickSteps(target string) []cascadeStep {
	native := []Strategy{StrategyText, StrategyRole, StrategyAttribute, StrategyPath}
	if looksLikeSelector(target) {
		native = append([]Strategy{StrategySelector}, native...)
	}

	var steps []cascadeStep
	for _, strategy := range native {
		strategy := strategy
		steps = append(steps, cascadeStep{
			strategy: strategy,
			run: func(ctx context.Context) error {
				loc, err := b.locatorFor(strategy, target)
				if err != nil {
					return err
				}
				return b.clickLocator(ctx, loc)
			},
		})
	}

	scan := finderScan(target)
	steps = append(steps, cascadeStep{
		strategy: StrategyScan,
		run: func(ctx context.Context) error {
			var pt point
			err := b.eval(ctx, jsRectOf(scan), func(v any) {
				if m, ok := v.(map[string]any); ok {
					pt.X, _ = m["x"].(float64)
					pt.Y, _ = m["y"].(float64)
				}
			})
			if err != nil {
				return err
			}
			return b.clickAt(ctx, pt.X, pt.Y)
		},
	})

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

func (b *PlaywrightBackend) clickLocator(ctx context.Context, loc playwright.Locator) error {
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		return err
	}
	box, err := loc.BoundingBox()
	if err != nil {
		return err
	}
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return fmt.Errorf("element has no visible box")
	}
	return b.clickAt(ctx, box.X+box.Width/2, box.Y+box.Height/2)
}

func (b *PlaywrightBackend) clickAt(ctx context.Context, x, y float64) error {
	dest := humanize.Point{X: x, Y: y}
	path := b.sim.MousePath(b.mouse, dest, b.sim.PathPoints())

	mouse := b.page.Mouse()
	for _, p := range path {
		if err := mouse.Move(p.X, p.Y); err != nil {
			return err
		}
		_ = b.sim.Delay(ctx, 2*time.Millisecond, 9*time.Millisecond)
	}
	if err := mouse.Down(); err != nil {
		return err
	}
	_ = b.sim.Delay(ctx, 20*time.Millisecond, 90*time.Millisecond)
	if err := mouse.Up(); err != nil {
		return err
	}
	b.mouse = dest
	return nil
}

func (b *PlaywrightBackend) Type(ctx context.Context, target, text string) bool {
	if !b.ready() {
		return false
	}
	b.intervention.checkObstruction(ctx, b.evalString)
	actionPause(ctx, b.sim, &b.state)

	native := []Strategy{StrategyText, StrategyRole, StrategyAttribute, StrategyPath}
	if looksLikeSelector(target) {
		native = append([]Strategy{StrategySelector}, native...)
	}

	var steps []cascadeStep
	for _, strategy := range native {
		strategy := strategy
		steps = append(steps, cascadeStep{
			strategy: strategy,
			run: func(ctx context.Context) error {
				loc, err := b.locatorFor(strategy, target)
				if err != nil {
					return err
				}
				return b.typeLocator(ctx, loc, text)
			},
		})
	}

	scan := finderScan(target)
	steps = append(steps, cascadeStep{
		strategy: StrategyScan,
		run: func(ctx context.Context) error {
			var focused bool
			err := b.eval(ctx, jsFocusAndClear(scan), func(v any) { focused, _ = v.(bool) })
			if err != nil {
				return err
			}
			if !focused {
				return fmt.Errorf("element did not take focus")
			}
			if err := b.replayKeystrokes(ctx, text); err != nil {
				return err
			}
			return b.commitExact(ctx, scan, text)
		},
	})

	if _, err := runCascade(ctx, b.logger, target, steps); err != nil {
		b.logger.Warn("type failed", "target", truncate(target, 60), "err", err)
		return false
	}
	return true
}

func (b *PlaywrightBackend) typeLocator(ctx context.Context, loc playwright.Locator, text string) error {
	if err := loc.Click(); err != nil {
		return err
	}
	if err := loc.Clear(); err != nil {
		return err
	}
	if err := b.replayKeystrokes(ctx, text); err != nil {
		return err
	}
	if value, err := loc.InputValue(); err == nil && value == text {
		return nil
	}
	// Replay drifted; force the exact text.
	return loc.Fill(text)
}

func (b *PlaywrightBackend) replayKeystrokes(ctx context.Context, text string) error {
	kbd := b.page.Keyboard()
	for _, k := range b.sim.Keystrokes(text) {
		if k.Pause > 0 {
			_ = b.sim.Delay(ctx, k.Pause, k.Pause)
		}
		if k.Backspace {
			if err := kbd.Press("Backspace"); err != nil {
				return err
			}
			continue
		}
		if err := kbd.InsertText(string(k.Rune)); err != nil {
			return err
		}
	}
	return nil
}

func (b *PlaywrightBackend) commitExact(ctx context.Context, finder, text string) error {
	var committed string
	err := b.eval(ctx, jsReadValue(finder), func(v any) { committed, _ = v.(string) })
	if err == nil && committed == text {
		return nil
	}
	var ok bool
	if err := b.eval(ctx, jsSetValue(finder, text), func(v any) { ok, _ = v.(bool) }); err != nil || !ok {
		return fmt.Errorf("could not commit exact text")
	}
	return nil
}

// pwKeys maps contract key names onto driver key identifiers.
var pwKeys = map[string]string{
	"enter":      "Enter",
	"return":     "Enter",
	"tab":        "Tab",
	"escape":     "Escape",
	"esc":        "Escape",
	"backspace":  "Backspace",
	"delete":     "Delete",
	"arrowup":    "ArrowUp",
	"arrowdown":  "ArrowDown",
	"arrowleft":  "ArrowLeft",
	"arrowright": "ArrowRight",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"home":       "Home",
	"end":        "End",
}

func (b *PlaywrightBackend) PressKey(ctx context.Context, key string) bool {
	if !b.ready() {
		return false
	}
	actionPause(ctx, b.sim, &b.state)

	k, ok := pwKeys[strings.ToLower(key)]
	if !ok {
		k = key
	}
	if err := b.page.Keyboard().Press(k); err != nil {
		b.logger.Warn("key press failed", "key", key, "err", err)
		return false
	}
	return true
}

func (b *PlaywrightBackend) Screenshot(ctx context.Context, path string) (string, error) {
	if !b.ready() {
		return "", fmt.Errorf("backend not initialized")
	}
	if err := ensureParentDir(path); err != nil {
		return "", err
	}
	_, err := b.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	b.logger.Debug("screenshot saved", "path", path)
	return path, nil
}

func (b *PlaywrightBackend) Wait(ctx context.Context, cond WaitFor) error {
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	timeoutMs := playwright.Float(float64(b.cfg.Timeout.Milliseconds()))

	switch {
	case cond.Duration > 0:
		return b.sim.Delay(ctx, cond.Duration, cond.Duration+250*time.Millisecond)

	case cond.Class == WaitLoad:
		err := b.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateLoad,
			Timeout: timeoutMs,
		})
		if err != nil {
			return &TimeoutError{What: "load", Elapsed: b.cfg.Timeout}
		}
		return nil

	case cond.Class == WaitNetworkIdle:
		// The driver's own idle tracking uses the same half-second
		// settle window the raw backends implement by hand.
		err := b.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateNetworkidle,
			Timeout: timeoutMs,
		})
		if err != nil {
			return &TimeoutError{What: "network idle", Elapsed: b.cfg.Timeout}
		}
		return nil

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
			err := b.eval(ctx, probe, func(v any) { visible, _ = v.(bool) })
			if err == nil && visible {
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

func (b *PlaywrightBackend) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	if !b.ready() {
		return nil, fmt.Errorf("backend not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		result any
		err    error
	)
	switch len(args) {
	case 0:
		result, err = b.page.Evaluate(script)
	case 1:
		result, err = b.page.Evaluate(script, args[0])
	default:
		result, err = b.page.Evaluate(script, args)
	}
	if err != nil {
		return nil, &EvaluationError{Script: script, Err: err}
	}
	return result, nil
}

func (b *PlaywrightBackend) CurrentURL() string {
	if url := b.state.url(); url != "" {
		return url
	}
	if b.page != nil {
		return b.page.URL()
	}
	return ""
}

func (b *PlaywrightBackend) Title(ctx context.Context) (string, error) {
	if !b.ready() {
		return "", fmt.Errorf("backend not initialized")
	}
	return b.page.Title()
}

func (b *PlaywrightBackend) ExtractContent(ctx context.Context, kind ContentKind) (*PageContent, error) {
	if !b.ready() {
		return nil, fmt.Errorf("backend not initialized")
	}
	title, _ := b.page.Title()
	content := &PageContent{URL: b.CurrentURL(), Title: title}

	decodeInto := func(script string, out any) error {
		result, err := b.page.Evaluate(script)
		if err != nil {
			return &EvaluationError{Script: script, Err: err}
		}
		return reencode(result, out)
	}

	switch kind {
	case ContentText:
		text, err := b.page.Locator("body").InnerText()
		if err != nil {
			return nil, err
		}
		content.Text = text
	case ContentHTML:
		html, err := b.page.Content()
		if err != nil {
			return nil, err
		}
		content.HTML = html
	case ContentLinks:
		if err := decodeInto(extractLinksScript, &content.Links); err != nil {
			return nil, err
		}
	case ContentForms:
		if err := decodeInto(extractFormsScript, &content.Forms); err != nil {
			return nil, err
		}
	case ContentFull:
		content.Text, _ = b.page.Locator("body").InnerText()
		_ = decodeInto(extractLinksScript, &content.Links)
		_ = decodeInto(extractFormsScript, &content.Forms)
	default:
		return nil, fmt.Errorf("unknown content kind: %q", kind)
	}
	return content, nil
}

func (b *PlaywrightBackend) SaveSession(ctx context.Context, path string) error {
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	raw, err := b.browCtx.Cookies()
	if err != nil {
		return fmt.Errorf("collect cookies: %w", err)
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		cookies = append(cookies, cookie)
	}

	var dump map[string]string
	if result, err := b.page.Evaluate(localStorageDumpScript); err == nil {
		dump = storageEntries(result)
	}

	return writeSnapshot(path, &sessionSnapshot{
		SavedAt:      time.Now().UTC(),
		URL:          b.CurrentURL(),
		Cookies:      cookies,
		LocalStorage: dump,
	})
}

func (b *PlaywrightBackend) LoadSession(ctx context.Context, path string) error {
	if !b.ready() {
		return fmt.Errorf("backend not initialized")
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}

	params := make([]playwright.OptionalCookie, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires > 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		switch c.SameSite {
		case "Strict":
			cookie.SameSite = playwright.SameSiteAttributeStrict
		case "Lax":
			cookie.SameSite = playwright.SameSiteAttributeLax
		case "None":
			cookie.SameSite = playwright.SameSiteAttributeNone
		}
		params = append(params, cookie)
	}
	if err := b.browCtx.AddCookies(params); err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}

	if len(snap.LocalStorage) > 0 {
		_, _ = b.page.Evaluate(jsRestoreLocalStorage(snap.LocalStorage))
	}
	return nil
}

func (b *PlaywrightBackend) Close(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.browCtx != nil {
		_ = b.browCtx.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	b.logger.Info("driver backend closed")
	return nil
}
