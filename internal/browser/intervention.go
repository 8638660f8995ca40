package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// interventionTimeout bounds how long automation suspends for a manual
// intervention before continuing best-effort.
const interventionTimeout = time.Minute

// Intervention suspends automated interaction while an unsolvable
// obstruction (a challenge page, a CAPTCHA) blocks progress. At most one
// intervention is active per session; re-entrant activation is a no-op.
type Intervention struct {
	mu          sync.Mutex
	active      bool
	message     string
	activatedAt time.Time

	// navigated receives a signal when the backend observes a
	// navigation, the cue that the obstruction cleared.
	navigated chan struct{}

	logger *slog.Logger
}

// NewIntervention returns an idle intervention handle.
func NewIntervention(logger *slog.Logger) *Intervention {
	return &Intervention{
		navigated: make(chan struct{}, 1),
		logger:    logger.With("component", "intervention"),
	}
}

// Active reports whether an intervention is currently suspending work.
func (iv *Intervention) Active() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.active
}

// NotifyNavigation signals that a navigation happened. Non-blocking;
// extra signals while nothing waits are dropped.
func (iv *Intervention) NotifyNavigation() {
	select {
	case iv.navigated <- struct{}{}:
	default:
	}
}

// Engage transitions Idle -> Active and blocks until a navigation event
// fires or the bounded timeout elapses, then returns to Idle
// unconditionally. A timeout is not a failure, merely a best-effort
// continuation point. Calling Engage while already Active returns
// immediately so duplicate waits never stack.
func (iv *Intervention) Engage(ctx context.Context, message string) {
	iv.mu.Lock()
	if iv.active {
		iv.mu.Unlock()
		return
	}
	iv.active = true
	iv.message = message
	iv.activatedAt = time.Now()
	// Drain any stale navigation signal from before activation.
	select {
	case <-iv.navigated:
	default:
	}
	iv.mu.Unlock()

	iv.logger.Warn("obstruction detected, suspending automation",
		"message", message, "timeout", interventionTimeout)

	timer := time.NewTimer(interventionTimeout)
	defer timer.Stop()

	select {
	case <-iv.navigated:
		iv.logger.Info("navigation observed, resuming", "waited", time.Since(iv.activatedAt))
	case <-timer.C:
		iv.logger.Info("intervention wait timed out, resuming best-effort")
	case <-ctx.Done():
		iv.logger.Info("intervention wait cancelled", "err", ctx.Err())
	}

	iv.mu.Lock()
	iv.active = false
	iv.message = ""
	iv.mu.Unlock()
}

// checkObstruction evaluates the challenge detector in the page and
// engages the intervention when it reports a blocker. evaluate is the
// backend's script runner.
func (iv *Intervention) checkObstruction(ctx context.Context, evaluate func(ctx context.Context, script string) (any, error)) {
	result, err := evaluate(ctx, challengeDetectScript)
	if err != nil {
		return
	}
	msg, _ := result.(string)
	if msg == "" {
		return
	}
	iv.Engage(ctx, msg)
}
