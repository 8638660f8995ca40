package humanize

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMousePathEndpoints(t *testing.T) {
	sim := New(rand.NewSource(1))

	tests := []struct {
		name   string
		start  Point
		end    Point
		points int
	}{
		{"simple", Point{X: 0, Y: 0}, Point{X: 100, Y: 100}, 10},
		{"zero interior", Point{X: 5, Y: 9}, Point{X: 800, Y: 2}, 0},
		{"same point", Point{X: 42, Y: 42}, Point{X: 42, Y: 42}, 5},
		{"negative direction", Point{X: 500, Y: 300}, Point{X: 10, Y: 20}, 25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := sim.MousePath(tc.start, tc.end, tc.points)
			require.Len(t, path, tc.points+2)
			assert.Equal(t, tc.start, path[0])
			assert.Equal(t, tc.end, path[len(path)-1])
		})
	}
}

func TestMousePathDeterministicWithSeed(t *testing.T) {
	a := New(rand.NewSource(7)).MousePath(Point{}, Point{X: 200, Y: 80}, 12)
	b := New(rand.NewSource(7)).MousePath(Point{}, Point{X: 200, Y: 80}, 12)
	assert.Equal(t, a, b)
}

func TestPathPointsSeededAndBounded(t *testing.T) {
	a := New(rand.NewSource(7))
	b := New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		n := a.PathPoints()
		assert.Equal(t, n, b.PathPoints(), "equal seeds must yield equal sequences")
		assert.GreaterOrEqual(t, n, 8)
		assert.LessOrEqual(t, n, 15)
	}
}

func TestDelayBounds(t *testing.T) {
	sim := New(rand.NewSource(3))

	start := time.Now()
	err := sim.Delay(context.Background(), 50*time.Millisecond, 120*time.Millisecond)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 250*time.Millisecond)
}

func TestDelayWithoutJitterIsExactMinimum(t *testing.T) {
	sim := New(rand.NewSource(3))
	sim.Jitter = false

	start := time.Now()
	err := sim.Delay(context.Background(), 60*time.Millisecond, 500*time.Millisecond)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestDelayHonorsContext(t *testing.T) {
	sim := New(rand.NewSource(3))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sim.Delay(ctx, time.Second, 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeystrokesFidelityWithMistakes(t *testing.T) {
	// A high mistake rate forces the correction branch; the committed
	// text must still match exactly.
	sim := New(rand.NewSource(11))
	sim.MistakeRate = 1.0

	const text = "hello world 42"
	plan := sim.Keystrokes(text)
	assert.Greater(t, len(plan), len(text), "mistake branch should add keystrokes")
	assert.Equal(t, text, FinalText(plan))
}

func TestKeystrokesFidelityCleanPath(t *testing.T) {
	sim := New(rand.NewSource(11))
	sim.MistakeRate = 0

	const text = "no mistakes here"
	plan := sim.Keystrokes(text)
	assert.Len(t, plan, len(text))
	assert.Equal(t, text, FinalText(plan))
}

func TestUserAgentNeverEmpty(t *testing.T) {
	sim := New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		assert.NotEmpty(t, sim.UserAgent())
	}
}
