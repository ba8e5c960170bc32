package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/wayfinder/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoute() *Route {
	return &Route{
		ID:   "lobby",
		Name: "Lobby to Lab",
		Waypoints: []Waypoint{
			{ID: "a", Order: 0, Instruction: "Face the door", TargetHeading: Float(90)},
			{ID: "b", Order: 1, Instruction: "Walk to the corridor", RequiredSteps: Int(12)},
			{ID: "c", Order: 2, Instruction: "Turn left"},
		},
	}
}

func TestRoute_Validate(t *testing.T) {
	r := sampleRoute()
	require.NoError(t, r.Validate())

	t.Run("Gap in order", func(t *testing.T) {
		bad := r.Clone()
		bad.Waypoints[2].Order = 5
		assert.ErrorIs(t, bad.Validate(), ErrConfiguration)
	})

	t.Run("Heading out of range", func(t *testing.T) {
		bad := r.Clone()
		bad.Waypoints[0].TargetHeading = Float(360)
		var cfgErr *ConfigurationError
		require.True(t, errors.As(bad.Validate(), &cfgErr))
		assert.Equal(t, "waypoint.target_heading", cfgErr.Field)
	})

	t.Run("Negative steps", func(t *testing.T) {
		bad := r.Clone()
		bad.Waypoints[1].RequiredSteps = Int(-1)
		assert.ErrorIs(t, bad.Validate(), ErrConfiguration)
	})

	t.Run("Duplicate IDs", func(t *testing.T) {
		bad := r.Clone()
		bad.Waypoints[2].ID = "a"
		assert.ErrorIs(t, bad.Validate(), ErrConfiguration)
	})
}

func TestRoute_Navigable(t *testing.T) {
	empty := &Route{ID: "empty", Name: "Nothing yet"}
	assert.NoError(t, empty.Validate(), "empty routes are valid for storage")
	assert.ErrorIs(t, empty.Navigable(), ErrConfiguration)
	assert.NoError(t, sampleRoute().Navigable())
}

func TestRoute_Authoring(t *testing.T) {
	r := sampleRoute()

	require.NoError(t, r.Append(Waypoint{ID: "d", Instruction: "Stop at the lab"}))
	assert.Equal(t, 3, r.Waypoints[3].Order)
	assert.ErrorIs(t, r.Append(Waypoint{ID: "d"}), ErrConfiguration)

	require.NoError(t, r.Remove("b"))
	require.Len(t, r.Waypoints, 3)
	for i, w := range r.Waypoints {
		assert.Equal(t, i, w.Order, "reindexed after delete")
	}
	assert.Equal(t, "c", r.Waypoints[1].ID)
	assert.ErrorIs(t, r.Remove("zzz"), ErrWaypointNotFound)

	require.NoError(t, r.Update(Waypoint{ID: "c", Instruction: "Turn right", TargetHeading: Float(270)}))
	assert.Equal(t, 1, r.Waypoints[1].Order)
	assert.Equal(t, "Turn right", r.Waypoints[1].Instruction)
	assert.ErrorIs(t, r.Update(Waypoint{ID: "nope"}), ErrWaypointNotFound)

	require.NoError(t, r.Validate())
}

func TestRoute_CloneIsDeep(t *testing.T) {
	r := sampleRoute()
	cp := r.Clone()
	*cp.Waypoints[0].TargetHeading = 10
	cp.Waypoints[1].Instruction = "changed"
	assert.Equal(t, 90.0, *r.Waypoints[0].TargetHeading)
	assert.Equal(t, "Walk to the corridor", r.Waypoints[1].Instruction)
}

func TestRoute_BearingHint(t *testing.T) {
	r := sampleRoute()
	_, ok := r.BearingHint(0)
	assert.False(t, ok)

	r.Waypoints[0].Position = &geometry.Point{Lat: 0, Lon: 0}
	r.Waypoints[1].Position = &geometry.Point{Lat: 0, Lon: 0.001}
	b, ok := r.BearingHint(0)
	require.True(t, ok)
	assert.InDelta(t, 90, b, 1e-6)

	_, ok = r.BearingHint(2)
	assert.False(t, ok)
}

func TestOrient(t *testing.T) {
	assert.Equal(t, NoTarget, Orient(HeadingOf(10), NoHeading).Kind)
	assert.Equal(t, NotYetSampled, Orient(NoHeading, HeadingOf(90)).Kind)

	o := Orient(HeadingOf(370), HeadingOf(90))
	assert.Equal(t, Sampled, o.Kind)
	assert.Equal(t, 10.0, o.Current.Degrees)
	assert.Equal(t, 90.0, o.Target)
}

func TestParseFeedbackMode(t *testing.T) {
	m, err := ParseFeedbackMode("Steps")
	require.NoError(t, err)
	assert.Equal(t, ModeSteps, m)
	assert.Equal(t, PolicyStepGate, m.Policy())

	m, err = ParseFeedbackMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCombined, m)
	assert.Equal(t, PolicyArrival, m.Policy())

	assert.Equal(t, PolicyManual, ModeManual.Policy())
	assert.Equal(t, PolicyArrival, ModeHaptic.Policy())

	_, err = ParseFeedbackMode("telepathy")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestChainHooks(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnArrived: func(_ context.Context, e *NavigationEvent) { calls = append(calls, "a:"+e.WaypointID) }}
	b := LifecycleHooks{
		OnArrived:    func(_ context.Context, e *NavigationEvent) { calls = append(calls, "b:"+e.WaypointID) },
		OnSessionEnd: func(_ context.Context, e *NavigationEvent) { calls = append(calls, "end") },
	}

	h := ChainHooks(a, b, LifecycleHooks{})
	assert.Nil(t, h.OnSessionStart)
	h.OnArrived(context.Background(), &NavigationEvent{WaypointID: "w1"})
	h.OnSessionEnd(context.Background(), &NavigationEvent{})
	assert.Equal(t, []string{"a:w1", "b:w1", "end"}, calls)
}
