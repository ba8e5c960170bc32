package arrival

import (
	"testing"
	"time"

	"github.com/aretw0/wayfinder/pkg/alignment"
	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/movement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestConfirmer_FiresOnSecondAlignedSampleAfterWindow(t *testing.T) {
	c := NewConfirmer(300 * time.Millisecond)
	target := domain.HeadingOf(90)

	samples := []float64{60, 70, 82, 91, 92}
	var firedAt []float64
	for i, h := range samples {
		aligned := alignment.EvaluateHeadings(domain.HeadingOf(h), target, 15).Aligned
		if c.Evaluate(aligned, at(i*200)) {
			firedAt = append(firedAt, h)
		}
	}
	assert.Equal(t, []float64{92}, firedAt)
}

func TestConfirmer_BrokenRunRestarts(t *testing.T) {
	c := NewConfirmer(300 * time.Millisecond)
	assert.False(t, c.Evaluate(true, at(0)))
	assert.False(t, c.Evaluate(true, at(200)))
	assert.False(t, c.Evaluate(false, at(250)))
	_, tracking := c.AlignedSince()
	assert.False(t, tracking)

	assert.False(t, c.Evaluate(true, at(300)))
	assert.False(t, c.Evaluate(true, at(500)))
	assert.True(t, c.Evaluate(true, at(600)))
}

func TestConfirmer_Idempotent(t *testing.T) {
	c := NewConfirmer(0)
	assert.True(t, c.Evaluate(true, at(0)))
	assert.False(t, c.Evaluate(true, at(200)))
	assert.False(t, c.Evaluate(false, at(400)))
	assert.False(t, c.Evaluate(true, at(600)), "one Arrived per waypoint until Reset")

	c.Reset()
	assert.True(t, c.Evaluate(true, at(800)))
}

func stabilizationConfig() config.Movement {
	cfg := config.Default().Movement
	cfg.HeadingChangeThresholdDeg = 30
	return cfg
}

// feed drives the detector with (ms, heading) pairs and ticks every 100ms up
// to until, returning the tick time at which Arrived fired.
func feed(t *testing.T, samples [][2]float64, until int) (time.Time, bool) {
	t.Helper()
	m := movement.New(stabilizationConfig())
	s := NewStabilizer(1500 * time.Millisecond)

	next := 0
	for ms := 0; ms <= until; ms += 100 {
		for next < len(samples) && int(samples[next][0]) <= ms {
			m.ObserveHeading(samples[next][1], at(int(samples[next][0])))
			next++
		}
		if s.Evaluate(m, at(ms)) {
			return at(ms), true
		}
	}
	return time.Time{}, false
}

func TestStabilizer_Scenario(t *testing.T) {
	firedAt, ok := feed(t, [][2]float64{{0, 10}, {200, 50}, {400, 52}, {600, 48}, {800, 51}}, 3000)
	require.True(t, ok)
	assert.Equal(t, at(1700), firedAt, "1500ms after the change at 200ms")
}

func TestStabilizer_ExcursionDelays(t *testing.T) {
	firedAt, ok := feed(t, [][2]float64{{0, 10}, {200, 50}, {400, 52}, {600, 80}, {800, 51}, {1000, 48}}, 4000)
	require.True(t, ok)
	assert.Equal(t, at(2300), firedAt, "stabilization restarts when the heading settles again")
}

func TestStabilizer_NoChangeNoArrival(t *testing.T) {
	_, ok := feed(t, [][2]float64{{0, 10}, {200, 12}, {400, 20}, {600, 15}}, 5000)
	assert.False(t, ok)
}

func TestStabilizer_FiresOnce(t *testing.T) {
	m := movement.New(stabilizationConfig())
	s := NewStabilizer(0)
	m.ObserveHeading(0, at(0))
	m.ObserveHeading(90, at(100))
	m.ObserveHeading(91, at(200))
	assert.True(t, s.Evaluate(m, at(200)))
	assert.False(t, s.Evaluate(m, at(300)))
	s.Reset()
	assert.True(t, s.Evaluate(m, at(400)))
}

func TestDetector_SelectsPolicyByTarget(t *testing.T) {
	d := New(config.Arrival{ConfirmWindow: 0}, time.Hour)
	m := movement.New(stabilizationConfig())

	withTarget := domain.Waypoint{ID: "a", TargetHeading: domain.Float(90)}
	directionOnly := domain.Waypoint{ID: "b"}

	assert.Equal(t, KindConfirmation, PolicyFor(withTarget))
	assert.Equal(t, KindStabilization, PolicyFor(directionOnly))

	assert.False(t, d.Evaluate(directionOnly, true, m, at(0)), "no change detected")
	assert.True(t, d.Evaluate(withTarget, true, m, at(0)))

	d.Reset()
	assert.True(t, d.Evaluate(withTarget, true, m, at(100)))
}
