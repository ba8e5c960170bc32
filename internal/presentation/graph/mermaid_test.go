package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/wayfinder/internal/presentation/graph"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/geometry"
	"github.com/stretchr/testify/assert"
)

func route() *domain.Route {
	return &domain.Route{
		ID: "corridor",
		Waypoints: []domain.Waypoint{
			{ID: "front-door", Order: 0, Instruction: `Face the "blue" door`, TargetHeading: domain.Float(90),
				Position: &geometry.Point{Lat: 0, Lon: 0}},
			{ID: "hall", Order: 1, Instruction: "Walk the hall", RequiredSteps: domain.Int(12),
				Position: &geometry.Point{Lat: 0, Lon: 0.001}},
			{ID: "lab", Order: 2, Instruction: "Enter the lab"},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(route(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `front_door(["Face the 'blue' door <br/> 🧭 90°"])`)
	assert.Contains(t, out, `hall[/"Walk the hall <br/> 👣 12"/]`)
	assert.Contains(t, out, `lab(("Enter the lab"))`)
	assert.Contains(t, out, `front_door -- "111 m" --> hall`)
	assert.Contains(t, out, "hall --> lab")
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(route(), &graph.Overlay{CurrentIndex: 1})
	assert.Contains(t, out, "class front_door visited;")
	assert.Contains(t, out, "class hall current;")
	assert.NotContains(t, out, "class lab")

	out = graph.GenerateMermaid(route(), &graph.Overlay{CurrentIndex: 2, Completed: true})
	assert.Contains(t, out, "class lab visited;")
	assert.NotContains(t, out, "current;")
}
