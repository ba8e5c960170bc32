package dsl

import (
	"fmt"

	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Builder collects routes.
type Builder struct {
	routes []*RouteBuilder
}

// New creates a new route set builder.
func New() *Builder {
	return &Builder{}
}

// Route starts a new route. Routes keep the order they were declared in.
func (b *Builder) Route(id, name string) *RouteBuilder {
	rb := &RouteBuilder{builder: b, route: &domain.Route{ID: id, Name: name}}
	b.routes = append(b.routes, rb)
	return rb
}

// Routes returns validated copies of every declared route.
func (b *Builder) Routes() ([]*domain.Route, error) {
	out := make([]*domain.Route, 0, len(b.routes))
	for _, rb := range b.routes {
		r, err := rb.Route()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Build compiles every route into an in-memory repository.
func (b *Builder) Build() (*memory.Routes, error) {
	routes, err := b.Routes()
	if err != nil {
		return nil, err
	}
	repo, err := memory.NewRoutes(routes...)
	if err != nil {
		return nil, fmt.Errorf("failed to build route repository: %w", err)
	}
	return repo, nil
}

// RouteBuilder configures one route.
type RouteBuilder struct {
	builder *Builder
	route   *domain.Route
}

// Task tags the route with a task type.
func (r *RouteBuilder) Task(taskType string) *RouteBuilder {
	r.route.TaskType = taskType
	return r
}

// Waypoint appends a waypoint; the following calls configure it.
func (r *RouteBuilder) Waypoint(id string) *RouteBuilder {
	r.route.Waypoints = append(r.route.Waypoints, domain.Waypoint{ID: id, Order: len(r.route.Waypoints)})
	return r
}

// Say sets the instruction of the current waypoint.
func (r *RouteBuilder) Say(instruction string) *RouteBuilder {
	r.must("Say").Instruction = instruction
	return r
}

// Heading sets the target heading of the current waypoint.
func (r *RouteBuilder) Heading(deg float64) *RouteBuilder {
	r.must("Heading").TargetHeading = domain.Float(deg)
	return r
}

// Steps sets the required step count of the current waypoint.
func (r *RouteBuilder) Steps(n int) *RouteBuilder {
	r.must("Steps").RequiredSteps = domain.Int(n)
	return r
}

// At records a position on the current waypoint for bearing hints.
func (r *RouteBuilder) At(lat, lon float64) *RouteBuilder {
	r.must("At").Position = &geometry.Point{Lat: lat, Lon: lon}
	return r
}

// Done returns to the route set.
func (r *RouteBuilder) Done() *Builder {
	return r.builder
}

// Route returns a validated copy of this route.
func (r *RouteBuilder) Route() (*domain.Route, error) {
	out := r.route.Clone()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// must returns the waypoint being configured, the last one appended.
func (r *RouteBuilder) must(call string) *domain.Waypoint {
	if len(r.route.Waypoints) == 0 {
		panic(fmt.Sprintf("dsl: %s called before Waypoint", call))
	}
	return &r.route.Waypoints[len(r.route.Waypoints)-1]
}
