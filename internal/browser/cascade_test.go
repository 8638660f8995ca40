package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCascadeShortCircuits(t *testing.T) {
	calls := make([]Strategy, 0, 3)
	steps := []cascadeStep{
		{strategy: StrategySelector, run: func(ctx context.Context) error {
			calls = append(calls, StrategySelector)
			return fmt.Errorf("no match")
		}},
		{strategy: StrategyText, run: func(ctx context.Context) error {
			calls = append(calls, StrategyText)
			return nil
		}},
		{strategy: StrategyRole, run: func(ctx context.Context) error {
			calls = append(calls, StrategyRole)
			return nil
		}},
	}

	res, err := runCascade(context.Background(), discardLogger(), "Submit", steps)
	require.NoError(t, err)
	assert.Equal(t, StrategyText, res.Strategy)
	assert.True(t, res.Verified)
	assert.Equal(t, []Strategy{StrategySelector, StrategyText}, calls,
		"strategies after the first success must not run")
}

func TestRunCascadeCollectsFailureReasons(t *testing.T) {
	steps := []cascadeStep{
		{strategy: StrategySelector, run: func(ctx context.Context) error { return fmt.Errorf("bad query") }},
		{strategy: StrategyText, run: func(ctx context.Context) error { return fmt.Errorf("no match") }},
		{strategy: StrategyScan, run: func(ctx context.Context) error { return fmt.Errorf("overlap too low") }},
	}

	_, err := runCascade(context.Background(), discardLogger(), "Checkout", steps)
	require.Error(t, err)

	var notFound *ElementNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Checkout", notFound.Target)
	require.Len(t, notFound.Attempts, 3)
	assert.Equal(t, StrategySelector, notFound.Attempts[0].Strategy)
	assert.Equal(t, "bad query", notFound.Attempts[0].Reason)
	assert.Equal(t, StrategyScan, notFound.Attempts[2].Strategy)
}

func TestRunCascadeCoordinateStepIsUnverified(t *testing.T) {
	steps := []cascadeStep{
		{strategy: StrategyText, run: func(ctx context.Context) error { return fmt.Errorf("no match") }},
		{strategy: StrategyCoordinate, unverified: true, run: func(ctx context.Context) error { return nil }},
	}

	res, err := runCascade(context.Background(), discardLogger(), "Sign in", steps)
	require.NoError(t, err)
	assert.Equal(t, StrategyCoordinate, res.Strategy)
	assert.False(t, res.Verified)
}

func TestRunCascadeHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	steps := []cascadeStep{
		{strategy: StrategyText, run: func(ctx context.Context) error { ran = true; return nil }},
	}

	_, err := runCascade(ctx, discardLogger(), "anything", steps)
	require.True(t, errors.Is(err, context.Canceled))
	assert.False(t, ran)
}

func TestLooksLikeSelector(t *testing.T) {
	cases := []struct {
		target string
		want   bool
	}{
		{"#login", true},
		{".btn-primary", true},
		{"div > span", true},
		{"input[name=q]", true},
		{"button", true},
		{"a:hover", true},
		{"Sign In", false},
		{"submit your order", false},
		{"Checkout", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, looksLikeSelector(tc.target), "target %q", tc.target)
	}
}

func TestHintPosition(t *testing.T) {
	vp := Viewport{Width: 1000, Height: 1000}

	x, y, ok := hintPosition("Sign in to your account", vp)
	require.True(t, ok)
	assert.InDelta(t, 930, x, 0.5)
	assert.InDelta(t, 60, y, 0.5)

	_, _, ok = hintPosition("frobnicate the widget", vp)
	assert.False(t, ok, "descriptors without a known affordance get no hint")

	x, y, ok = hintPosition("Accept all cookies", vp)
	require.True(t, ok)
	assert.InDelta(t, 500, x, 0.5)
	assert.InDelta(t, 880, y, 0.5)

	// Single-word keywords match whole words only: "x" must not fire
	// inside "Export", while a literal "x" descriptor still hits the
	// dismiss position.
	_, _, ok = hintPosition("Export data", vp)
	assert.False(t, ok)

	_, y, ok = hintPosition("x", vp)
	require.True(t, ok)
	assert.InDelta(t, 120, y, 0.5)
}

func TestDescriptorWords(t *testing.T) {
	words := descriptorWords(`Click the "Buy now!" button.`)
	assert.Equal(t, []string{"click", "the", "buy", "now", "button"}, words)
}
