package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Extra options override the auto-detected style.
func NewRenderer(opts ...glamour.TermRendererOption) (func(string) (string, error), error) {
	opts = append([]glamour.TermRendererOption{glamour.WithAutoStyle()}, opts...)
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// RouteMarkdown describes a route as a markdown table for `route inspect`.
func RouteMarkdown(route *domain.Route) string {
	var sb strings.Builder
	title := route.Name
	if title == "" {
		title = route.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "`%s`", route.ID)
	if route.TaskType != "" {
		fmt.Fprintf(&sb, " · %s", route.TaskType)
	}
	fmt.Fprintf(&sb, " · %d waypoints\n\n", route.Len())

	if route.Len() == 0 {
		sb.WriteString("_No waypoints._\n")
		return sb.String()
	}

	sb.WriteString("| # | Waypoint | Instruction | Heading | Steps | Bearing to next |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for i, wp := range route.Waypoints {
		heading, steps, bearing := "-", "-", "-"
		if wp.TargetHeading != nil {
			heading = fmt.Sprintf("%.1f°", *wp.TargetHeading)
		}
		if wp.RequiredSteps != nil {
			steps = fmt.Sprintf("%d", *wp.RequiredSteps)
		}
		if b, ok := route.BearingHint(i); ok {
			bearing = fmt.Sprintf("%.1f°", b)
		}
		instr := strings.ReplaceAll(wp.Instruction, "|", "\\|")
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\n", wp.Order, wp.ID, instr, heading, steps, bearing)
	}
	return sb.String()
}
