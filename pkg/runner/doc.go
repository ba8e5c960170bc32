/*
Package runner replays recorded sensor scripts through an engine on a
virtual clock, so a walk can be reproduced exactly.

A script is newline-delimited JSON, one entry per line, ordered by at_ms
(milliseconds since the start of the replay):

	{"at_ms": 0,    "type": "heading", "deg": 84}
	{"at_ms": 150,  "type": "accel", "x": 0.3, "y": 2.1, "z": 9.7}
	{"at_ms": 400,  "type": "step"}
	{"at_ms": 900,  "type": "tick"}
	{"at_ms": 1200, "type": "reached"}
	{"at_ms": 1300, "type": "advance"}
	{"at_ms": 2000, "type": "stop"}

Between entries the runner synthesizes evaluation ticks at the configured
interval and fires due settle timers, exactly as the live loop would.
Lifecycle events and frames are passed to a Handler; JSONHandler writes
NDJSON and TextHandler writes colored lines.

# Usage

	r := runner.NewRunner(repo, runner.WithHandler(runner.NewTextHandler(os.Stdout)))
	view, err := r.Run(ctx, script, "corridor", domain.ModeAudio)
*/
package runner
