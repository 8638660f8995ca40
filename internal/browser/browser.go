// Package browser drives a real browser to perform navigation and
// interaction tasks while reducing common bot-detection signals.
//
// One capability contract (Backend) is implemented by three transports:
// a raw Chrome DevTools Protocol driver, a hybrid rod-based driver with
// script-injection fallbacks, and a Playwright driver spanning three
// rendering engines. The factory picks among them from an environment
// probe; every interaction runs through the element-resolution cascade
// and the humanize simulator.
package browser

import (
	"context"
	"strings"
	"time"
)

// Backend is the capability contract every transport implements.
//
// Methods that act on page content return a bare success flag:
// Initialize failing returns false (so the factory caller can try a
// fresh session with another backend) and interaction methods return
// false after the cascade is exhausted, never panicking across the API
// boundary. Inspection methods return typed errors instead.
type Backend interface {
	// Initialize launches or connects the underlying engine. A false
	// return means this backend instance is unusable; create a new
	// session rather than retrying Initialize.
	Initialize(ctx context.Context) bool

	// Close tears down the engine process/connection. Idempotent.
	Close(ctx context.Context) error

	// Navigate loads a URL, auto-prepending https:// when no scheme is
	// given. A load timeout is not fatal: Navigate returns false and
	// the session stays usable.
	Navigate(ctx context.Context, url string) bool

	// Back returns to the most recent history entry recorded by
	// Navigate. False when history is empty or the load failed; a
	// failed load keeps the entry for a retry.
	Back(ctx context.Context) bool

	// Click resolves target through the cascade and clicks it with
	// humanized motion.
	Click(ctx context.Context, target string) bool

	// Type resolves target, clears it and types text with humanized
	// pauses. The committed value always equals text exactly.
	Type(ctx context.Context, target, text string) bool

	// PressKey dispatches a single named key (Enter, Tab, Escape...).
	PressKey(ctx context.Context, key string) bool

	// Screenshot writes a PNG to path, creating parent directories.
	// Returns the path written.
	Screenshot(ctx context.Context, path string) (string, error)

	// Wait blocks until the condition holds or its bounded timeout
	// elapses. Always resolves; never hangs.
	Wait(ctx context.Context, cond WaitFor) error

	// Evaluate runs a script in the page and returns its value.
	Evaluate(ctx context.Context, script string, args ...any) (any, error)

	CurrentURL() string
	Title(ctx context.Context) (string, error)

	// ExtractContent returns structured page content for the kind.
	ExtractContent(ctx context.Context, kind ContentKind) (*PageContent, error)

	// SaveSession/LoadSession persist and restore cookie and storage
	// state as a JSON file keyed only by path.
	SaveSession(ctx context.Context, path string) error
	LoadSession(ctx context.Context, path string) error

	// Name returns the backend identifier (e.g. "cdp-chrome").
	Name() string
}

// WaitClass names a page-level wait condition.
type WaitClass string

const (
	WaitLoad        WaitClass = "load"
	WaitNetworkIdle WaitClass = "network-idle"
	WaitNavigation  WaitClass = "navigation"
)

// WaitFor is a wait condition: exactly one of Duration, Class or Target
// is set. Target means "wait until the described element is visible".
type WaitFor struct {
	Duration time.Duration
	Class    WaitClass
	Target   string
}

// WaitDuration waits a fixed duration.
func WaitDuration(d time.Duration) WaitFor { return WaitFor{Duration: d} }

// WaitUntil waits for a named page condition.
func WaitUntil(c WaitClass) WaitFor { return WaitFor{Class: c} }

// WaitVisible waits for a cascade target to become visible.
func WaitVisible(target string) WaitFor { return WaitFor{Target: target} }

// ParseWait turns a CLI-style condition string into a WaitFor: a
// duration literal, a wait-class name, or anything else as a target
// descriptor.
func ParseWait(s string) WaitFor {
	switch WaitClass(strings.ToLower(strings.TrimSpace(s))) {
	case WaitLoad, WaitNetworkIdle, WaitNavigation:
		return WaitUntil(WaitClass(strings.ToLower(strings.TrimSpace(s))))
	}
	if d, err := time.ParseDuration(s); err == nil {
		return WaitDuration(d)
	}
	return WaitVisible(s)
}

// ContentKind selects what ExtractContent returns.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentHTML  ContentKind = "html"
	ContentLinks ContentKind = "links"
	ContentForms ContentKind = "forms"
	ContentFull  ContentKind = "full"
)

// PageContent holds structured extracted page content.
type PageContent struct {
	URL   string     `json:"url"`
	Title string     `json:"title"`
	Text  string     `json:"text,omitempty"`
	HTML  string     `json:"html,omitempty"`
	Links []PageLink `json:"links,omitempty"`
	Forms []PageForm `json:"forms,omitempty"`
}

// PageLink is one extracted link.
type PageLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// PageForm is one form found on the page.
type PageForm struct {
	Action string      `json:"action"`
	Method string      `json:"method,omitempty"`
	Fields []FormField `json:"fields,omitempty"`
}

// FormField is one input within a form.
type FormField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder,omitempty"`
}

// normalizeURL prepends https:// when the caller omitted a scheme.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "about:blank" {
		return raw
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// truncate shortens s for log output.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
