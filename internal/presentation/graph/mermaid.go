package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Overlay marks session progress on the chart.
type Overlay struct {
	CurrentIndex int
	Completed    bool
}

// GenerateMermaid produces a Mermaid flowchart of a route, one node per
// waypoint in order. It applies semantic styling:
// - First waypoint: ([Stadium])
// - Final waypoint: ((Circle))
// - Step counted waypoint: [/Parallelogram/]
// - Default: [Rectangle]
// Edges between waypoints with recorded positions are labelled with the
// distance between them.
func GenerateMermaid(route *domain.Route, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	last := len(route.Waypoints) - 1
	for i, wp := range route.Waypoints {
		safeID := sanitizeMermaidID(wp.ID)

		opener, closer := "[", "]"
		switch {
		case i == last:
			opener, closer = "((", "))"
		case i == 0:
			opener, closer = "([", "])"
		case wp.RequiredSteps != nil:
			opener, closer = "[/", "/]"
		}

		label := escapeLabel(wp.Instruction)
		if label == "" {
			label = wp.ID
		}
		if wp.TargetHeading != nil {
			label += fmt.Sprintf(" <br/> 🧭 %.0f°", *wp.TargetHeading)
		}
		if wp.RequiredSteps != nil {
			label += fmt.Sprintf(" <br/> 👣 %d", *wp.RequiredSteps)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		if i == last {
			continue
		}
		next := route.Waypoints[i+1]
		arrow := "-->"
		if wp.Position != nil && next.Position != nil {
			arrow = fmt.Sprintf("-- \"%.0f m\" -->", geometry.HaversineDistance(*wp.Position, *next.Position))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(next.ID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for i, wp := range route.Waypoints {
			switch {
			case i < overlay.CurrentIndex, overlay.Completed:
				fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(wp.ID))
			case i == overlay.CurrentIndex:
				fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(wp.ID))
			}
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
