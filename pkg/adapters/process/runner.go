// Package process runs allow-listed sensor commands and feeds their output
// into a session. A command writes either NMEA sentences or one JSON sample
// per line, such as {"type":"heading","deg":92.5}.
package process

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"time"

	"github.com/aretw0/wayfinder/pkg/adapters/nmea"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// ErrNotRegistered is returned for sensors missing from the allow-list.
var ErrNotRegistered = errors.New("sensor process not registered")

// EnvSessionID names the session a process feeds.
const EnvSessionID = "WAYFINDER_SESSION_ID"

// Runner starts sensor processes. It follows a strict registry pattern:
// only allow-listed commands run, and session data reaches them only
// through environment variables.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(sensors map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, s := range sensors {
			s.Name = name
			r.registry[name] = s
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new sensor process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, format, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Format: format, Command: command, Args: args}
}

// Sensors lists the registered sensor names.
func (r *Runner) Sensors() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run starts the sensor and forwards its samples to sink until the process
// exits or ctx is done. A clean exit returns nil.
func (r *Runner) Run(ctx context.Context, name, sessionID string, sink ports.SampleSink) error {
	proc, ok := r.registry[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	log := r.logger.With("sensor", name, "session_id", sessionID)

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), EnvSessionID+"="+sessionID)
	for k, v := range proc.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	log.Info("Sensor started", "pid", cmd.Process.Pid)

	var feedErr error
	switch proc.Format {
	case FormatNMEA:
		feedErr = nmea.NewReader(stdout, nmea.WithLogger(log)).Run(ctx, sink)
	default:
		feedErr = feedNDJSON(ctx, stdout, sink, log)
	}
	// drain so the process is never blocked on a full pipe
	_, _ = io.Copy(io.Discard, stdout)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		return fmt.Errorf("sensor %s failed: %w. Stderr: %s", name, waitErr, stderr.String())
	}
	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		return feedErr
	}
	log.Info("Sensor exited")
	return nil
}

// line is one NDJSON sample.
type line struct {
	Type string   `json:"type"`
	Deg  *float64 `json:"deg,omitempty"`
	X    float64  `json:"x,omitempty"`
	Y    float64  `json:"y,omitempty"`
	Z    float64  `json:"z,omitempty"`
}

func feedNDJSON(ctx context.Context, r io.Reader, sink ports.SampleSink, log *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			log.Debug("skipping line", "err", err)
			continue
		}
		if err := push(sink, l); err != nil {
			log.Debug("skipping sample", "err", err)
		}
	}
	return scanner.Err()
}

func push(sink ports.SampleSink, l line) error {
	var now time.Time // zero: stamped by the engine clock
	switch l.Type {
	case "heading":
		if l.Deg == nil {
			return errors.New("heading sample without deg")
		}
		return sink.PushHeading(*l.Deg, now)
	case "accel":
		return sink.PushAccel(domain.Vector{X: l.X, Y: l.Y, Z: l.Z}, now)
	case "step":
		return sink.PushStep(now)
	}
	return fmt.Errorf("unknown sample type %q", l.Type)
}
