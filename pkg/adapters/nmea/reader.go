// Package nmea feeds compass headings from NMEA 0183 sentences into a
// session. HDT sentences carry true heading directly; HDG sentences are
// corrected by their deviation and variation fields.
package nmea

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/aretw0/wayfinder/pkg/geometry"
	"github.com/aretw0/wayfinder/pkg/ports"
	serial "github.com/jacobsa/go-serial/serial"
)

// ErrNoHeading is returned by ParseHeading for sentences without a heading.
var ErrNoHeading = errors.New("sentence carries no heading")

// ParseHeading extracts a true heading in [0, 360) from one sentence.
func ParseHeading(line string) (float64, error) {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return 0, err
	}

	switch sentence.DataType() {
	case nmea.TypeHDT:
		m := sentence.(nmea.HDT)
		return geometry.NormalizeHeading(m.Heading), nil
	case nmea.TypeHDG:
		m := sentence.(nmea.HDG)
		deg := m.Heading + signed(m.Deviation, m.DeviationDirection) + signed(m.Variation, m.VariationDirection)
		return geometry.NormalizeHeading(deg), nil
	default:
		return 0, ErrNoHeading
	}
}

func signed(v float64, dir string) float64 {
	if dir == nmea.West {
		return -v
	}
	return v
}

// Reader turns a stream of sentences into heading samples.
type Reader struct {
	src    io.Reader
	logger *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader wraps src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:    src,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run forwards every heading to sink until src is exhausted or ctx is done.
// Noisy or partial sentences are skipped. A clean EOF returns nil.
func (r *Reader) Run(ctx context.Context, sink ports.SampleSink) error {
	scanner := bufio.NewScanner(r.src)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		deg, err := ParseHeading(line)
		if err != nil {
			if !errors.Is(err, ErrNoHeading) {
				r.logger.Debug("skipping sentence", "line", line, "err", err)
			}
			continue
		}

		if err := sink.PushHeading(deg, time.Time{}); err != nil {
			return fmt.Errorf("push heading: %w", err)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read nmea: %w", err)
	}
	return nil
}

// SerialConfig describes a serial compass.
type SerialConfig struct {
	Port     string
	BaudRate uint
}

// OpenSerial opens a serial compass port with 8N1 framing.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 4800
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	return port, nil
}
