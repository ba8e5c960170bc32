package runner

import (
	"context"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// Frame is the engine view after one script entry, or after a synthesized
// tick that changed the session.
type Frame struct {
	AtMS  int64          `json:"at_ms"`
	Entry EntryType      `json:"entry"`
	View  wayfinder.View `json:"view"`
}

// Handler receives the replay output in order.
type Handler interface {
	Event(ctx context.Context, atMS int64, e domain.NavigationEvent) error
	Frame(ctx context.Context, f Frame) error
}

type nopHandler struct{}

func (nopHandler) Event(context.Context, int64, domain.NavigationEvent) error { return nil }
func (nopHandler) Frame(context.Context, Frame) error                        { return nil }
