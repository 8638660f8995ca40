// Package humanize synthesizes timing and motion that statistically
// resembles human input: randomized delays, Bézier mouse paths, typing
// plans with occasional corrected mistakes, and a user-agent pool.
package humanize

import (
	"context"
	"math/rand"
	"time"
)

// Point is a viewport coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keystroke is one step of a typing plan. A keystroke either commits a
// rune or deletes the previously committed one (Backspace).
type Keystroke struct {
	Rune      rune
	Backspace bool
	// Pause is the suggested delay before dispatching this keystroke.
	Pause time.Duration
}

// Simulator produces humanized timing and motion. The randomness source
// is injected so tests can seed it and get deterministic output.
type Simulator struct {
	rng *rand.Rand

	// Jitter enables randomized padding on Delay. When false, Delay
	// sleeps for exactly the minimum.
	Jitter bool

	// MistakeRate is the per-keystroke probability of a mistyped
	// character followed by a correction. Zero disables mistakes.
	MistakeRate float64
}

// New returns a Simulator backed by the given source. A nil source falls
// back to a time-seeded one.
func New(src rand.Source) *Simulator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Simulator{
		rng:         rand.New(src),
		Jitter:      true,
		MistakeRate: 0.04,
	}
}

// Delay suspends for a uniformly sampled duration in [min, max). It
// resumes early if the context is cancelled and never blocks forever.
func (s *Simulator) Delay(ctx context.Context, min, max time.Duration) error {
	d := min
	if s.Jitter && max > min {
		d = min + time.Duration(s.rng.Int63n(int64(max-min)))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MousePath returns an ordered list of points+2 coordinates from start to
// end. Interior points follow a cubic Bézier curve whose control points
// are offset from the straight-line thirds by bounded jitter. The first
// element always equals start and the last always equals end.
func (s *Simulator) MousePath(start, end Point, points int) []Point {
	if points < 0 {
		points = 0
	}
	c1 := s.jitterControl(lerpPoint(start, end, 1.0/3.0))
	c2 := s.jitterControl(lerpPoint(start, end, 2.0/3.0))

	path := make([]Point, 0, points+2)
	path = append(path, start)
	for i := 1; i <= points; i++ {
		t := float64(i) / float64(points+1)
		path = append(path, cubicBezier(start, c1, c2, end, t))
	}
	path = append(path, end)
	return path
}

// PathPoints samples how many interior points a mouse path gets, so
// path density varies between clicks without leaving the seeded source.
func (s *Simulator) PathPoints() int {
	return 8 + s.rng.Intn(8)
}

// controlJitterPx bounds how far a control point may stray from the
// straight line. Small enough that paths stay plausible on dense UIs.
const controlJitterPx = 40.0

func (s *Simulator) jitterControl(p Point) Point {
	return Point{
		X: p.X + (s.rng.Float64()*2-1)*controlJitterPx,
		Y: p.Y + (s.rng.Float64()*2-1)*controlJitterPx,
	}
}

func lerpPoint(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func cubicBezier(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X,
		Y: u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y,
	}
}

// Keystrokes expands text into a typing plan. With MistakeRate > 0 the
// plan may contain a mistyped neighbor character immediately followed by
// a Backspace and the intended character. Replaying the plan always
// commits exactly text: mistakes are cosmetic timing noise, never lossy.
func (s *Simulator) Keystrokes(text string) []Keystroke {
	var plan []Keystroke
	for _, r := range text {
		if s.MistakeRate > 0 && s.rng.Float64() < s.MistakeRate {
			wrong := neighborKey(r, s.rng)
			if wrong != 0 {
				plan = append(plan,
					Keystroke{Rune: wrong, Pause: s.keyPause()},
					Keystroke{Backspace: true, Pause: s.keyPause() + 60*time.Millisecond},
				)
			}
		}
		plan = append(plan, Keystroke{Rune: r, Pause: s.keyPause()})
	}
	return plan
}

// FinalText replays a typing plan and returns the committed value. Used
// by tests and by backends to verify content fidelity before falling back
// to a direct value set.
func FinalText(plan []Keystroke) string {
	var out []rune
	for _, k := range plan {
		if k.Backspace {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, k.Rune)
	}
	return string(out)
}

func (s *Simulator) keyPause() time.Duration {
	base := 45 * time.Millisecond
	if !s.Jitter {
		return base
	}
	return base + time.Duration(s.rng.Int63n(int64(90*time.Millisecond)))
}

// qwertyRows drives mistake synthesis: a mistyped character is an
// adjacent key on the same row.
var qwertyRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"1234567890",
}

func neighborKey(r rune, rng *rand.Rand) rune {
	lower := r
	if r >= 'A' && r <= 'Z' {
		lower = r + ('a' - 'A')
	}
	for _, row := range qwertyRows {
		for i, c := range row {
			if c != lower {
				continue
			}
			if i == 0 {
				return rune(row[1])
			}
			if i == len(row)-1 {
				return rune(row[i-1])
			}
			if rng.Intn(2) == 0 {
				return rune(row[i-1])
			}
			return rune(row[i+1])
		}
	}
	return 0
}

// userAgents is the fixed, versioned pool Pick draws from. Entries track
// current stable releases of mainstream browsers.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
}

// UserAgent returns one entry from the pool. Never empty.
func (s *Simulator) UserAgent() string {
	return userAgents[s.rng.Intn(len(userAgents))]
}
