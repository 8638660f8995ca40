package browser

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// Strategy names one locator strategy in the resolution cascade.
type Strategy string

const (
	StrategySelector   Strategy = "selector"   // descriptor as a literal CSS query
	StrategyText       Strategy = "text"       // exact visible-text match
	StrategyRole       Strategy = "role"       // accessible role + name
	StrategyAttribute  Strategy = "attribute"  // attribute substring, case-insensitive
	StrategyPath       Strategy = "path"       // synthesized structural path query
	StrategyScan       Strategy = "scan"       // injected full-DOM relaxed scan
	StrategyCoordinate Strategy = "coordinate" // last-resort viewport position (click only)
)

// Resolution records which strategy completed an interaction. Verified
// is false only for coordinate fallbacks, where the click happened at a
// heuristic position and the intended element could not be confirmed.
type Resolution struct {
	Strategy Strategy
	Verified bool
}

// cascadeStep is one strategy attempt: locate AND complete the action.
// A step fails by returning an error; it must leave DOM and focus state
// clean for the next step regardless.
type cascadeStep struct {
	strategy Strategy
	run      func(ctx context.Context) error
	// unverified marks steps whose success cannot be confirmed to have
	// hit the intended element (coordinate clicks).
	unverified bool
}

// runCascade tries steps strictly in order, short-circuiting on the
// first that completes. The strategies never run concurrently: two
// simultaneous DOM mutations would corrupt state for both. On
// exhaustion it returns an ElementNotFoundError carrying every failure
// reason for diagnostics.
func runCascade(ctx context.Context, logger *slog.Logger, target string, steps []cascadeStep) (*Resolution, error) {
	var attempts []StrategyAttempt
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := step.run(ctx)
		if err == nil {
			logger.Debug("cascade resolved",
				"target", truncate(target, 60),
				"strategy", string(step.strategy),
				"verified", !step.unverified)
			return &Resolution{Strategy: step.strategy, Verified: !step.unverified}, nil
		}
		attempts = append(attempts, StrategyAttempt{Strategy: step.strategy, Reason: err.Error()})
		logger.Debug("cascade strategy failed",
			"target", truncate(target, 60),
			"strategy", string(step.strategy),
			"reason", truncate(err.Error(), 120))
	}
	return nil, &ElementNotFoundError{Target: target, Attempts: attempts}
}

var selectorPattern = regexp.MustCompile(`^[#.\[]|^[a-zA-Z][\w-]*([#.\[:>][^ ]|$)|[>~+]`)

// looksLikeSelector guesses whether a descriptor is meant as a literal
// CSS query rather than visible text. Free text with spaces and no CSS
// metacharacters is treated as text.
func looksLikeSelector(target string) bool {
	t := strings.TrimSpace(target)
	if t == "" {
		return false
	}
	if strings.ContainsAny(t, "#.[]>:") {
		return true
	}
	// Single lowercase token could be a tag name (button, input...).
	if !strings.Contains(t, " ") && strings.ToLower(t) == t {
		return selectorPattern.MatchString(t)
	}
	return false
}

// descriptorWords splits a target descriptor into lowercase words with
// surrounding punctuation trimmed, for whole-word keyword matching.
func descriptorWords(target string) []string {
	fields := strings.Fields(strings.ToLower(target))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `"'.,!?()`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// coordinateHint maps descriptor keywords to well-known UI positions as
// viewport fractions. Used only by the click cascade's final step.
type coordinateHint struct {
	fx, fy float64
}

var coordinateHints = []struct {
	keywords []string
	hint     coordinateHint
}{
	{[]string{"sign in", "log in", "login", "account", "profile", "avatar", "register", "sign up"}, coordinateHint{0.93, 0.06}},
	{[]string{"menu", "hamburger", "navigation"}, coordinateHint{0.04, 0.06}},
	{[]string{"search"}, coordinateHint{0.5, 0.06}},
	{[]string{"accept", "agree", "cookie", "consent", "got it"}, coordinateHint{0.5, 0.88}},
	{[]string{"close", "dismiss", "x"}, coordinateHint{0.95, 0.12}},
}

// hintPosition returns a heuristic viewport coordinate for descriptors
// that name well-known UI affordances, or false when no hint applies.
// Single-word keywords match whole words only, so "x" never fires
// inside a word like "export".
func hintPosition(target string, vp Viewport) (float64, float64, bool) {
	t := strings.ToLower(target)
	words := descriptorWords(target)
	for _, h := range coordinateHints {
		for _, kw := range h.keywords {
			if matchesKeyword(t, words, kw) {
				return h.hint.fx * float64(vp.Width), h.hint.fy * float64(vp.Height), true
			}
		}
	}
	return 0, 0, false
}

func matchesKeyword(target string, words []string, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(target, kw)
	}
	return slices.Contains(words, kw)
}
