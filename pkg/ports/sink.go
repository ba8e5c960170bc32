package ports

import (
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// SampleSink receives sensor samples for one session.
// Implementations never block for long and silently drop samples for
// sessions that have stopped.
type SampleSink interface {
	PushHeading(deg float64, at time.Time) error
	PushAccel(v domain.Vector, at time.Time) error
	PushStep(at time.Time) error
}
