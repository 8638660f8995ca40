package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitUntil(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestInterventionResumesOnNavigation(t *testing.T) {
	iv := NewIntervention(discardLogger())
	assert.False(t, iv.Active())

	done := make(chan struct{})
	go func() {
		iv.Engage(context.Background(), "challenge page detected")
		close(done)
	}()

	waitUntil(t, iv.Active, "intervention to activate")

	iv.NotifyNavigation()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Engage did not resume after navigation")
	}
	assert.False(t, iv.Active())
}

func TestInterventionReentrantEngageIsNoOp(t *testing.T) {
	iv := NewIntervention(discardLogger())

	first := make(chan struct{})
	go func() {
		iv.Engage(context.Background(), "captcha")
		close(first)
	}()
	waitUntil(t, iv.Active, "first engage to activate")

	// A second Engage while active must return without waiting.
	second := make(chan struct{})
	go func() {
		iv.Engage(context.Background(), "captcha again")
		close(second)
	}()
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("re-entrant Engage blocked instead of returning")
	}
	assert.True(t, iv.Active(), "the original intervention stays active")

	iv.NotifyNavigation()
	<-first
}

func TestInterventionHonorsContextCancel(t *testing.T) {
	iv := NewIntervention(discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	iv.Engage(ctx, "challenge")
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, iv.Active())
}

func TestInterventionDrainsStaleNavigationSignal(t *testing.T) {
	iv := NewIntervention(discardLogger())

	// A navigation before activation must not satisfy the wait.
	iv.NotifyNavigation()

	done := make(chan struct{})
	go func() {
		iv.Engage(context.Background(), "challenge")
		close(done)
	}()
	waitUntil(t, iv.Active, "intervention to activate")

	select {
	case <-done:
		t.Fatal("a stale pre-activation signal resumed the intervention")
	case <-time.After(100 * time.Millisecond):
	}

	iv.NotifyNavigation()
	<-done
}

func TestCheckObstruction(t *testing.T) {
	iv := NewIntervention(discardLogger())

	// No blocker reported: stays idle, no waiting.
	iv.checkObstruction(context.Background(), func(ctx context.Context, script string) (any, error) {
		assert.Equal(t, challengeDetectScript, script)
		return "", nil
	})
	assert.False(t, iv.Active())

	// Blocker reported with a cancelled context: engages and releases
	// immediately instead of blocking the test for the full wait.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	iv.checkObstruction(ctx, func(ctx context.Context, script string) (any, error) {
		return "verification challenge", nil
	})
	assert.False(t, iv.Active())

	// Evaluation errors are swallowed; detection must never break flow.
	iv.checkObstruction(context.Background(), func(ctx context.Context, script string) (any, error) {
		return nil, context.DeadlineExceeded
	})
	assert.False(t, iv.Active())
}
