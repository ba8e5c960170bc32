package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/runner"
	"github.com/muesli/termenv"
)

// ReplayOptions configures a script replay.
type ReplayOptions struct {
	Script  string
	RouteID string
	Mode    string
	JSON    bool
	// Tick overrides the synthesized tick spacing when positive.
	Tick time.Duration
}

// Replay runs a recorded sensor script against a route and writes frames to out.
func Replay(ctx context.Context, env *Env, opts ReplayOptions, out io.Writer) error {
	mode, err := domain.ParseFeedbackMode(opts.Mode)
	if err != nil {
		return err
	}

	var script io.Reader = os.Stdin
	if opts.Script != "" && opts.Script != "-" {
		f, err := os.Open(opts.Script)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		script = f
	}

	var handler runner.Handler
	if opts.JSON {
		handler = runner.NewJSONHandler(out)
	} else {
		var hopts []runner.TextHandlerOption
		if !isTerminal(out) {
			hopts = append(hopts, runner.WithProfile(termenv.Ascii))
		}
		handler = runner.NewTextHandler(out, hopts...)
	}

	ropts := []runner.Option{
		runner.WithConfig(env.Config),
		runner.WithHandler(handler),
		runner.WithLogger(env.Logger),
	}
	if opts.Tick > 0 {
		ropts = append(ropts, runner.WithTickInterval(opts.Tick))
	}

	view, err := runner.NewRunner(env.Routes, ropts...).Run(ctx, script, opts.RouteID, mode)
	if err != nil {
		return err
	}
	env.Logger.Info("Replay finished",
		"route_id", opts.RouteID,
		"index", view.Session.CurrentWaypointIndex,
		"completed", view.Session.Completed,
	)
	return nil
}
