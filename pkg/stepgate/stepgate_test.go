package stepgate

import (
	"testing"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_TenSteps(t *testing.T) {
	required := domain.Int(10)
	steps := 0
	for i := 0; i < 9; i++ {
		steps++
		assert.False(t, Evaluate(steps, required, true).CanAdvance, "step %d", steps)
	}
	steps++
	status := Evaluate(steps, required, true)
	assert.True(t, status.CanAdvance)
	assert.Equal(t, 100.0, status.StepProgress)
	assert.Equal(t, 10, *status.RequiredSteps)
}

func TestEvaluate_RequiresAlignment(t *testing.T) {
	assert.False(t, CanAdvance(12, domain.Int(10), false))
	assert.True(t, CanAdvance(12, domain.Int(10), true))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 50.0, Progress(5, domain.Int(10)))
	assert.Equal(t, 100.0, Progress(25, domain.Int(10)))
	assert.Equal(t, 0.0, Progress(5, domain.Int(0)))
	assert.Equal(t, 0.0, Progress(5, nil))
}

func TestEvaluate_NoRequirement(t *testing.T) {
	status := Evaluate(3, nil, true)
	assert.False(t, status.CanAdvance)
	assert.Nil(t, status.RequiredSteps)
	assert.Equal(t, 3, status.CurrentSteps)

	assert.True(t, CanAdvance(0, domain.Int(0), true), "zero requirement only needs alignment")
}
