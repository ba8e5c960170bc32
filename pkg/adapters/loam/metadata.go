package loam

import "github.com/aretw0/wayfinder/pkg/domain"

// RouteMetadata is the frontmatter of a route document.
// The markdown body is free-form notes and is not interpreted.
type RouteMetadata struct {
	ID        string             `json:"id" mapstructure:"id"`
	Name      string             `json:"name" mapstructure:"name"`
	TaskType  string             `json:"task_type,omitempty" mapstructure:"task_type"`
	Waypoints []WaypointMetadata `json:"waypoints" mapstructure:"waypoints"`
}

// WaypointMetadata mirrors domain.Waypoint with loose typing for authored
// files: order is optional and positions may be written as "lat,lon" pairs.
type WaypointMetadata struct {
	ID            string    `json:"id" mapstructure:"id"`
	Order         *int      `json:"order,omitempty" mapstructure:"order"`
	Instruction   string    `json:"instruction" mapstructure:"instruction"`
	TargetHeading *float64  `json:"target_heading,omitempty" mapstructure:"target_heading"`
	RequiredSteps *int      `json:"required_steps,omitempty" mapstructure:"required_steps"`
	Position      []float64 `json:"position,omitempty" mapstructure:"position"`
}

func fromRoute(r *domain.Route) RouteMetadata {
	meta := RouteMetadata{ID: r.ID, Name: r.Name, TaskType: r.TaskType}
	for _, w := range r.Waypoints {
		order := w.Order
		wm := WaypointMetadata{
			ID:            w.ID,
			Order:         &order,
			Instruction:   w.Instruction,
			TargetHeading: w.TargetHeading,
			RequiredSteps: w.RequiredSteps,
		}
		if w.Position != nil {
			wm.Position = []float64{w.Position.Lat, w.Position.Lon}
		}
		meta.Waypoints = append(meta.Waypoints, wm)
	}
	return meta
}
