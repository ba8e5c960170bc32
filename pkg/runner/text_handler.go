package runner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/feedback"
	"github.com/muesli/termenv"
)

// TextHandler writes one human readable line per event and frame.
type TextHandler struct {
	w       io.Writer
	profile termenv.Profile
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithProfile forces a color profile; termenv.Ascii disables colors.
func WithProfile(p termenv.Profile) TextHandlerOption {
	return func(h *TextHandler) {
		h.profile = p
	}
}

// NewTextHandler creates a handler writing to w, colored for the terminal
// attached to stdout.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	h := &TextHandler{w: w, profile: termenv.ColorProfile()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) color(s, hex string) string {
	return termenv.String(s).Foreground(h.profile.Color(hex)).String()
}

func stamp(atMS int64) string {
	return fmt.Sprintf("[%8.3fs]", float64(atMS)/1000)
}

func (h *TextHandler) Event(_ context.Context, atMS int64, e domain.NavigationEvent) error {
	var b strings.Builder
	b.WriteString(stamp(atMS))
	b.WriteString(" ")

	switch e.Type {
	case domain.EventSessionStart:
		b.WriteString(h.color("start", "#818cf8"))
		fmt.Fprintf(&b, " %s on %s (%s)", e.SessionID, e.RouteID, e.Mode)
	case domain.EventWaypointEnter:
		b.WriteString(h.color("enter", "#a78bfa"))
		fmt.Fprintf(&b, " #%d %s", e.WaypointIndex, e.WaypointID)
	case domain.EventArrived:
		b.WriteString(h.color("arrived", "#4ade80"))
		fmt.Fprintf(&b, " #%d %s by %s after %s", e.WaypointIndex, e.WaypointID, e.Policy, e.Dwell)
	case domain.EventSessionEnd:
		b.WriteString(h.color("end", "#fb7185"))
		fmt.Fprintf(&b, " %s", e.Reason)
	default:
		b.WriteString(string(e.Type))
	}

	_, err := fmt.Fprintln(h.w, b.String())
	return err
}

func (h *TextHandler) Frame(_ context.Context, f Frame) error {
	v := f.View
	entry := string(f.Entry)
	if entry == "" {
		entry = "-"
	}

	line := fmt.Sprintf("%s %-8s #%d %q", stamp(f.AtMS), entry, v.Alignment.WaypointIndex, v.Alignment.Direction)
	if v.Alignment.Error != nil {
		line += fmt.Sprintf(" err %+6.1f°", *v.Alignment.Error)
	}
	if v.Session.CurrentStepCount > 0 || v.Steps.RequiredSteps != nil {
		line += fmt.Sprintf(" steps %d", v.Steps.CurrentSteps)
		if v.Steps.RequiredSteps != nil {
			line += fmt.Sprintf("/%d", *v.Steps.RequiredSteps)
		}
	}
	line += " " + h.cue(v.Cue)
	switch {
	case v.Session.Completed:
		line += " " + h.color("completed", "#4ade80")
	case !v.Session.Active:
		line += " " + h.color("stopped", "#fb7185")
	}

	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *TextHandler) cue(c feedback.Cue) string {
	label := c.Pattern.String()
	if c.Pulsing() {
		label = fmt.Sprintf("%s %s %s", label, c.Intensity, c.Interval)
	}
	switch {
	case c.Pattern == feedback.Continuous:
		return h.color(label, "#4ade80")
	case c.Pattern == feedback.Silent:
		return h.color(label, "#6b7280")
	case c.Intensity == feedback.Heavy:
		return h.color(label, "#f87171")
	case c.Intensity == feedback.Medium:
		return h.color(label, "#facc15")
	default:
		return h.color(label, "#a3e635")
	}
}
