package runtime_test

import (
	"testing"
	"time"

	"github.com/aretw0/wayfinder/internal/runtime"
	"github.com/stretchr/testify/assert"
)

func TestVirtualClock_FiresInDueOrder(t *testing.T) {
	c := runtime.NewVirtualClock(t0)
	var fired []string
	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	stopped := c.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "stopped") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"early"}, fired)
	assert.Equal(t, 1, c.Pending())

	c.Set(t0.Add(time.Second))
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestVirtualClock_NeverMovesBackwards(t *testing.T) {
	c := runtime.NewVirtualClock(t0)
	c.Set(t0.Add(-time.Second))
	assert.Equal(t, t0, c.Now())
}
