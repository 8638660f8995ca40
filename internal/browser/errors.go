package browser

import (
	"fmt"
	"strings"
	"time"
)

// ElementNotFoundError reports an exhausted resolution cascade. It
// carries every strategy attempted and why each failed so the caller can
// decide whether a different descriptor is worth trying.
type ElementNotFoundError struct {
	Target   string
	Attempts []StrategyAttempt
}

// StrategyAttempt records one failed cascade strategy.
type StrategyAttempt struct {
	Strategy Strategy
	Reason   string
}

func (e *ElementNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "element not found for %q after %d strategies", e.Target, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %s", a.Strategy, a.Reason)
	}
	return b.String()
}

// NavigationError reports a failed or timed-out page load.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// TimeoutError reports a wait that exceeded its bound.
type TimeoutError struct {
	What    string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s after %s", e.What, e.Elapsed)
}

// ProtocolUnavailableError means the engine's debugging endpoint never
// became reachable. Fatal for the backend instance: the factory does not
// retry with a different backend mid-session.
type ProtocolUnavailableError struct {
	Endpoint string
	Err      error
}

func (e *ProtocolUnavailableError) Error() string {
	return fmt.Sprintf("debugging protocol unavailable at %s: %v", e.Endpoint, e.Err)
}

func (e *ProtocolUnavailableError) Unwrap() error { return e.Err }

// EvaluationError reports an injected script that threw.
type EvaluationError struct {
	Script string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("script evaluation failed (%s): %v", truncate(e.Script, 80), e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// DialogBlockedError reports an unexpected native dialog that was
// auto-handled per the configured policy.
type DialogBlockedError struct {
	Message string
	Action  string // "accept" or "dismiss"
}

func (e *DialogBlockedError) Error() string {
	return fmt.Sprintf("native dialog %q auto-%sed", e.Message, e.Action)
}
