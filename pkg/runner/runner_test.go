package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/dsl"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corridor(t *testing.T) ports.RouteRepository {
	t.Helper()
	repo, err := dsl.New().
		Route("corridor", "Corridor").
		Waypoint("door").Say("Face the door").Heading(90).
		Waypoint("lab").Say("Enter the lab").
		Done().
		Build()
	require.NoError(t, err)
	return repo
}

const walk = `
# face the door, then confirm the lab by hand
{"at_ms": 0, "type": "heading", "deg": 90}
{"at_ms": 2000, "type": "advance"}
`

func records(t *testing.T, out []byte) []Record {
	t.Helper()
	var recs []Record
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		recs = append(recs, r)
	}
	return recs
}

func events(recs []Record) []Record {
	var out []Record
	for _, r := range recs {
		if r.Kind == "event" {
			out = append(out, r)
		}
	}
	return out
}

func TestReadScript(t *testing.T) {
	entries, err := ReadScript(strings.NewReader(walk))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryHeading, entries[0].Type)
	assert.Equal(t, 90.0, *entries[0].Deg)
	assert.Equal(t, int64(2000), entries[1].AtMS)
}

func TestReadScript_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"bad json", `{"at_ms": 0,`, "line 1"},
		{"unknown type", `{"at_ms": 0, "type": "jump"}`, `unknown entry type "jump"`},
		{"heading without deg", `{"at_ms": 0, "type": "heading"}`, "without deg"},
		{"negative time", `{"at_ms": -5, "type": "tick"}`, "negative"},
		{"unordered", "{\"at_ms\": 10, \"type\": \"tick\"}\n{\"at_ms\": 5, \"type\": \"tick\"}", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadScript(strings.NewReader(tt.script))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := ReadScript(strings.NewReader("{\"at_ms\": 10, \"type\": \"tick\"}\n{\"at_ms\": 5, \"type\": \"tick\"}"))
	assert.ErrorIs(t, err, ErrUnordered)
}

func TestRun_ArrivalAndCompletion(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(corridor(t), WithHandler(NewJSONHandler(&out)))

	view, err := r.Run(context.Background(), strings.NewReader(walk), "corridor", domain.ModeAudio)
	require.NoError(t, err)
	assert.True(t, view.Session.Completed)
	assert.False(t, view.Session.Active)

	evs := events(records(t, out.Bytes()))
	require.Len(t, evs, 4)

	assert.Equal(t, domain.EventSessionStart, evs[0].Event.Type)
	assert.Equal(t, int64(0), evs[0].AtMS)

	// aligned from the first tick at 200ms, confirmed 300ms later on the 600ms tick
	assert.Equal(t, domain.EventArrived, evs[1].Event.Type)
	assert.Equal(t, "door", evs[1].Event.WaypointID)
	assert.Equal(t, "heading_confirmation", evs[1].Event.Policy)
	assert.Equal(t, int64(600), evs[1].AtMS)

	// settle due at 900ms lands when the clock reaches the 1000ms tick
	assert.Equal(t, domain.EventWaypointEnter, evs[2].Event.Type)
	assert.Equal(t, "lab", evs[2].Event.WaypointID)
	assert.Equal(t, int64(1000), evs[2].AtMS)

	assert.Equal(t, domain.EventSessionEnd, evs[3].Event.Type)
	assert.Equal(t, domain.EndCompleted, evs[3].Event.Reason)
	assert.Equal(t, int64(2000), evs[3].AtMS)
}

func TestRun_Deterministic(t *testing.T) {
	run := func() string {
		var out bytes.Buffer
		r := NewRunner(corridor(t), WithHandler(NewJSONHandler(&out)))
		_, err := r.Run(context.Background(), strings.NewReader(walk), "corridor", domain.ModeAudio)
		require.NoError(t, err)
		return out.String()
	}
	assert.Equal(t, run(), run())
}

func TestRun_StopDropsLaterSamples(t *testing.T) {
	script := `
{"at_ms": 0, "type": "heading", "deg": 10}
{"at_ms": 100, "type": "stop"}
{"at_ms": 200, "type": "heading", "deg": 90}
{"at_ms": 300, "type": "advance"}
`
	var out bytes.Buffer
	r := NewRunner(corridor(t), WithHandler(NewJSONHandler(&out)))
	view, err := r.Run(context.Background(), strings.NewReader(script), "corridor", domain.ModeAudio)
	require.NoError(t, err)

	assert.False(t, view.Session.Active)
	assert.False(t, view.Session.Completed)
	assert.Equal(t, 0, view.Session.CurrentWaypointIndex)
	require.NotNil(t, view.Alignment.CurrentHeading)
	assert.Equal(t, 10.0, *view.Alignment.CurrentHeading)

	evs := events(records(t, out.Bytes()))
	require.Len(t, evs, 2)
	assert.Equal(t, domain.EndStopped, evs[1].Event.Reason)
}

func TestRun_StepGate(t *testing.T) {
	repo, err := dsl.New().
		Route("hall", "Hall").
		Waypoint("walk").Say("Walk ahead").Heading(0).Steps(2).
		Waypoint("end").Say("Stop here").
		Done().
		Build()
	require.NoError(t, err)

	script := `
{"at_ms": 0, "type": "heading", "deg": 3}
{"at_ms": 500, "type": "step"}
{"at_ms": 1000, "type": "step"}
`
	r := NewRunner(repo, WithTickInterval(0), WithTail(0))
	view, err := r.Run(context.Background(), strings.NewReader(script), "hall", domain.ModeSteps)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Session.CurrentWaypointIndex)
	assert.True(t, view.Session.Active)
}

func TestRun_UnknownRoute(t *testing.T) {
	r := NewRunner(corridor(t))
	_, err := r.Run(context.Background(), strings.NewReader(walk), "nope", domain.ModeAudio)
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestTextHandler(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(corridor(t), WithHandler(NewTextHandler(&out, WithProfile(termenv.Ascii))))
	_, err := r.Run(context.Background(), strings.NewReader(walk), "corridor", domain.ModeAudio)
	require.NoError(t, err)

	text := out.String()
	assert.NotContains(t, text, "\x1b[")
	assert.Contains(t, text, "start replay on corridor (audio)")
	assert.Contains(t, text, "arrived #0 door by heading_confirmation after 600ms")
	assert.Contains(t, text, "enter #1 lab")
	assert.Contains(t, text, "end completed")
	assert.Contains(t, text, `heading  #0 "Face the door" err   +0.0° continuous`)
}
