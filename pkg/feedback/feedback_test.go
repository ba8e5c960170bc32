package feedback

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/wayfinder/pkg/alignment"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(current, target float64) alignment.Result {
	return alignment.EvaluateHeadings(domain.HeadingOf(current), domain.HeadingOf(target), 15)
}

func TestPulseInterval(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, Default.PulseInterval(0))
	assert.Equal(t, 700*time.Millisecond, Default.PulseInterval(90))
	assert.Equal(t, 1200*time.Millisecond, Default.PulseInterval(180))
	assert.Equal(t, 1200*time.Millisecond, Default.PulseInterval(500))
	assert.Equal(t, 200*time.Millisecond, Default.PulseInterval(-10))
}

func TestIntensityTier(t *testing.T) {
	assert.Equal(t, Heavy, Default.IntensityTier(0))
	assert.Equal(t, Heavy, Default.IntensityTier(9.99))
	assert.Equal(t, Medium, Default.IntensityTier(10))
	assert.Equal(t, Medium, Default.IntensityTier(29.9))
	assert.Equal(t, Light, Default.IntensityTier(30))
	assert.Equal(t, Light, Default.IntensityTier(180))
}

func TestPulsePattern(t *testing.T) {
	assert.Equal(t, DoublePulse, PulsePattern(0.1))
	assert.Equal(t, SinglePulse, PulsePattern(0))
	assert.Equal(t, SinglePulse, PulsePattern(-45))
}

func TestMap(t *testing.T) {
	t.Run("Aligned is continuous only", func(t *testing.T) {
		cue := Default.Map(eval(88, 90))
		assert.Equal(t, Continuous, cue.Pattern)
		assert.False(t, cue.Pulsing())
		assert.Zero(t, cue.Interval)
	})

	t.Run("Turn right doubles", func(t *testing.T) {
		cue := Default.Map(eval(60, 90))
		assert.Equal(t, DoublePulse, cue.Pattern)
		assert.Equal(t, Light, cue.Intensity)
		assert.Equal(t, 120*time.Millisecond, cue.PulseGap)
		assert.InDelta(t, float64(366*time.Millisecond), float64(cue.Interval), float64(time.Millisecond))
	})

	t.Run("Turn left single", func(t *testing.T) {
		cue := Default.Map(eval(110, 90))
		assert.Equal(t, SinglePulse, cue.Pattern)
		assert.Equal(t, Medium, cue.Intensity)
		assert.Zero(t, cue.PulseGap)
	})

	t.Run("No fix is silent", func(t *testing.T) {
		cue := Default.Map(alignment.EvaluateHeadings(domain.NoHeading, domain.HeadingOf(90), 15))
		assert.Equal(t, Silent, cue.Pattern)
	})

	t.Run("Directionless is continuous", func(t *testing.T) {
		cue := Default.Map(alignment.EvaluateHeadings(domain.HeadingOf(10), domain.NoHeading, 15))
		assert.Equal(t, Continuous, cue.Pattern)
	})
}

func TestMapWithMovement(t *testing.T) {
	far := eval(200, 90) // 110 left, light single pulse
	base := Default.Map(far)

	boosted := Default.MapWithMovement(far, 0.9)
	assert.Equal(t, Medium, boosted.Intensity)
	assert.Equal(t, base.Pattern, boosted.Pattern)
	assert.Equal(t, base.Interval, boosted.Interval)

	assert.Equal(t, base, Default.MapWithMovement(far, 0.2), "low confidence never changes the cue")

	near := eval(85, 90)
	near.Aligned = false // force a pulse at heavy tier
	assert.Equal(t, Heavy, Default.MapWithMovement(near, 1).Intensity, "tier saturates")

	assert.Equal(t, Continuous, Default.MapWithMovement(eval(90, 90), 1).Pattern)
}

func TestCue_JSON(t *testing.T) {
	raw, err := json.Marshal(Cue{Pattern: DoublePulse, Intensity: Medium, Interval: time.Second, PulseGap: 120 * time.Millisecond})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"double_pulse","intensity":"medium","interval":1000000000,"pulse_gap":120000000}`, string(raw))
}

func TestCue_JSONDecode(t *testing.T) {
	var c Cue
	require.NoError(t, json.Unmarshal([]byte(`{"pattern":"single_pulse","intensity":"heavy","interval":500000000}`), &c))
	assert.Equal(t, Cue{Pattern: SinglePulse, Intensity: Heavy, Interval: 500 * time.Millisecond}, c)

	assert.Error(t, json.Unmarshal([]byte(`{"pattern":"buzz"}`), &c))
}
