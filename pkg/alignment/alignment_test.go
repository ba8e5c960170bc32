package alignment

import (
	"testing"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateHeadings(t *testing.T) {
	tests := []struct {
		name      string
		current   domain.Heading
		target    domain.Heading
		threshold float64
		aligned   bool
		measured  bool
		err       float64
	}{
		{"directionless ignores heading", domain.HeadingOf(200), domain.NoHeading, 15, true, false, 0},
		{"directionless without compass", domain.NoHeading, domain.NoHeading, 15, true, false, 0},
		{"no compass fix", domain.NoHeading, domain.HeadingOf(90), 15, false, false, 0},
		{"within threshold left", domain.HeadingOf(100), domain.HeadingOf(90), 15, true, true, -10},
		{"on the boundary", domain.HeadingOf(75), domain.HeadingOf(90), 15, true, true, 15},
		{"outside threshold right", domain.HeadingOf(60), domain.HeadingOf(90), 15, false, true, 30},
		{"wrap across north", domain.HeadingOf(355), domain.HeadingOf(5), 15, true, true, 10},
		{"zero threshold exact", domain.HeadingOf(42), domain.HeadingOf(42), 0, true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := EvaluateHeadings(tt.current, tt.target, tt.threshold)
			assert.Equal(t, tt.aligned, r.Aligned)
			assert.Equal(t, tt.measured, r.Measured)
			if tt.measured {
				assert.InDelta(t, tt.err, r.Error, 1e-9)
				assert.InDelta(t, abs(tt.err), r.AbsError, 1e-9)
				assert.NotNil(t, r.ErrorPtr())
			} else {
				assert.Nil(t, r.ErrorPtr())
				assert.Nil(t, r.AbsErrorPtr())
			}
		})
	}
}

func TestEvaluate_SameHeadingAlwaysAligned(t *testing.T) {
	for h := 0.0; h < 360; h += 3.7 {
		for _, threshold := range []float64{0, 1, 15, 90} {
			assert.True(t, EvaluateHeadings(domain.HeadingOf(h), domain.HeadingOf(h), threshold).Aligned)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
