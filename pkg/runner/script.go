package runner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// MaxLineSize bounds a single script line.
const MaxLineSize = 64 * 1024

// EntryType names what a script entry does.
type EntryType string

const (
	EntryHeading EntryType = "heading"
	EntryAccel   EntryType = "accel"
	EntryStep    EntryType = "step"
	EntryTick    EntryType = "tick"
	EntryAdvance EntryType = "advance"
	EntryReached EntryType = "reached"
	EntryStop    EntryType = "stop"
)

// ErrUnordered is returned for scripts whose entries go back in time.
var ErrUnordered = errors.New("script entries must be ordered by at_ms")

// Entry is one line of a replay script.
type Entry struct {
	AtMS int64     `json:"at_ms"`
	Type EntryType `json:"type"`
	Deg  *float64  `json:"deg,omitempty"`
	X    float64   `json:"x,omitempty"`
	Y    float64   `json:"y,omitempty"`
	Z    float64   `json:"z,omitempty"`
}

// Offset is the entry time relative to the start of the replay.
func (e Entry) Offset() time.Duration {
	return time.Duration(e.AtMS) * time.Millisecond
}

// IsSample reports whether the entry goes through a sensor feed.
func (e Entry) IsSample() bool {
	return e.Type == EntryHeading || e.Type == EntryAccel || e.Type == EntryStep
}

// Push forwards a sample entry into sink.
func (e Entry) Push(sink ports.SampleSink, at time.Time) error {
	switch e.Type {
	case EntryHeading:
		return sink.PushHeading(*e.Deg, at)
	case EntryAccel:
		return sink.PushAccel(domain.Vector{X: e.X, Y: e.Y, Z: e.Z}, at)
	case EntryStep:
		return sink.PushStep(at)
	}
	return fmt.Errorf("%s is not a sample", e.Type)
}

func (e Entry) validate() error {
	switch e.Type {
	case EntryHeading:
		if e.Deg == nil {
			return errors.New("heading entry without deg")
		}
	case EntryAccel, EntryStep, EntryTick, EntryAdvance, EntryReached, EntryStop:
	default:
		return fmt.Errorf("unknown entry type %q", e.Type)
	}
	if e.AtMS < 0 {
		return fmt.Errorf("negative at_ms %d", e.AtMS)
	}
	return nil
}

// ReadScript parses and validates a whole script. Blank lines and lines
// starting with # are skipped.
func ReadScript(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)

	var entries []Entry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(entries); n > 0 && e.AtMS < entries[n-1].AtMS {
			return nil, fmt.Errorf("line %d: %w", line, ErrUnordered)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return entries, nil
}
