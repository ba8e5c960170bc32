// Package config holds every timing constant and threshold used by the
// progression engine. Nothing in the engine hard-codes these values.
package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Alignment Alignment `mapstructure:"alignment" yaml:"alignment" json:"alignment"`
	Movement  Movement  `mapstructure:"movement" yaml:"movement" json:"movement"`
	Arrival   Arrival   `mapstructure:"arrival" yaml:"arrival" json:"arrival"`
	Feedback  Feedback  `mapstructure:"feedback" yaml:"feedback" json:"feedback"`
	Loop      Loop      `mapstructure:"loop" yaml:"loop" json:"loop"`
}

// Alignment configures the AlignmentEngine.
type Alignment struct {
	ThresholdDeg float64 `mapstructure:"threshold_deg" yaml:"threshold_deg" json:"threshold_deg"`
}

// Movement configures the MovementDetector.
type Movement struct {
	// HeadingChangeThresholdDeg is the deviation from the segment start
	// heading that counts as a detected change.
	HeadingChangeThresholdDeg float64 `mapstructure:"heading_change_threshold_deg" yaml:"heading_change_threshold_deg" json:"heading_change_threshold_deg"`
	// StableDeltaDeg is the largest sample-to-sample delta still considered stable.
	StableDeltaDeg float64 `mapstructure:"stable_delta_deg" yaml:"stable_delta_deg" json:"stable_delta_deg"`
	// StableWindow is the stabilization window: the time a heading must hold
	// after a detected change. Movement confidence reaches 1 and heading-change
	// arrival fires once it has elapsed, so both read this one value.
	StableWindow time.Duration `mapstructure:"stable_window" yaml:"stable_window" json:"stable_window"`
	// AccelThreshold is the Euclidean delta between consecutive samples (m/s²).
	AccelThreshold       float64 `mapstructure:"accel_threshold" yaml:"accel_threshold" json:"accel_threshold"`
	AccelConfidenceFloor float64 `mapstructure:"accel_confidence_floor" yaml:"accel_confidence_floor" json:"accel_confidence_floor"`
	TurningConfidence    float64 `mapstructure:"turning_confidence" yaml:"turning_confidence" json:"turning_confidence"`
}

// Arrival configures both arrival policies.
type Arrival struct {
	// ConfirmWindow is the continuous alignment needed by heading confirmation.
	ConfirmWindow time.Duration `mapstructure:"confirm_window" yaml:"confirm_window" json:"confirm_window"`
	// SettleDelay is the grace period between an Arrived signal and the advance.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay" json:"settle_delay"`
}

// Feedback configures the pulse mapping.
type Feedback struct {
	MinInterval     time.Duration `mapstructure:"min_interval" yaml:"min_interval" json:"min_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval" json:"max_interval"`
	HeavyBelowDeg   float64       `mapstructure:"heavy_below_deg" yaml:"heavy_below_deg" json:"heavy_below_deg"`
	MediumBelowDeg  float64       `mapstructure:"medium_below_deg" yaml:"medium_below_deg" json:"medium_below_deg"`
	DoublePulseGap  time.Duration `mapstructure:"double_pulse_gap" yaml:"double_pulse_gap" json:"double_pulse_gap"`
	BoostConfidence float64       `mapstructure:"boost_confidence" yaml:"boost_confidence" json:"boost_confidence"`
}

// Loop configures the event loop.
type Loop struct {
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" json:"tick_interval"`
	QueueSize    int           `mapstructure:"queue_size" yaml:"queue_size" json:"queue_size"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Alignment: Alignment{ThresholdDeg: 15},
		Movement: Movement{
			HeadingChangeThresholdDeg: 25,
			StableDeltaDeg:            5,
			StableWindow:              1500 * time.Millisecond,
			AccelThreshold:            1.5,
			AccelConfidenceFloor:      0.4,
			TurningConfidence:         0.3,
		},
		Arrival: Arrival{
			ConfirmWindow: 300 * time.Millisecond,
			SettleDelay:   300 * time.Millisecond,
		},
		Feedback: Feedback{
			MinInterval:     200 * time.Millisecond,
			MaxInterval:     1200 * time.Millisecond,
			HeavyBelowDeg:   10,
			MediumBelowDeg:  30,
			DoublePulseGap:  120 * time.Millisecond,
			BoostConfidence: 0.7,
		},
		Loop: Loop{
			TickInterval: 200 * time.Millisecond,
			QueueSize:    256,
		},
	}
}

// Validate rejects negative values and inconsistent ranges.
func (c Config) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"alignment.threshold_deg", c.Alignment.ThresholdDeg},
		{"movement.heading_change_threshold_deg", c.Movement.HeadingChangeThresholdDeg},
		{"movement.stable_delta_deg", c.Movement.StableDeltaDeg},
		{"movement.stable_window", float64(c.Movement.StableWindow)},
		{"movement.accel_threshold", c.Movement.AccelThreshold},
		{"movement.accel_confidence_floor", c.Movement.AccelConfidenceFloor},
		{"movement.turning_confidence", c.Movement.TurningConfidence},
		{"arrival.confirm_window", float64(c.Arrival.ConfirmWindow)},
		{"arrival.settle_delay", float64(c.Arrival.SettleDelay)},
		{"feedback.min_interval", float64(c.Feedback.MinInterval)},
		{"feedback.max_interval", float64(c.Feedback.MaxInterval)},
		{"feedback.heavy_below_deg", c.Feedback.HeavyBelowDeg},
		{"feedback.medium_below_deg", c.Feedback.MediumBelowDeg},
		{"feedback.double_pulse_gap", float64(c.Feedback.DoublePulseGap)},
		{"feedback.boost_confidence", c.Feedback.BoostConfidence},
		{"loop.tick_interval", float64(c.Loop.TickInterval)},
		{"loop.queue_size", float64(c.Loop.QueueSize)},
	}
	for _, chk := range checks {
		if math.IsNaN(chk.value) || math.IsInf(chk.value, 0) {
			return domain.NewConfigurationError(chk.field, "must be a finite number")
		}
		if chk.value < 0 {
			return domain.NewConfigurationError(chk.field, "must be non-negative")
		}
	}

	if c.Feedback.MaxInterval < c.Feedback.MinInterval {
		return domain.NewConfigurationError("feedback.max_interval", "must not be below min_interval")
	}
	if c.Feedback.MediumBelowDeg < c.Feedback.HeavyBelowDeg {
		return domain.NewConfigurationError("feedback.medium_below_deg", "must not be below heavy_below_deg")
	}
	ratios := []struct {
		field string
		value float64
	}{
		{"movement.accel_confidence_floor", c.Movement.AccelConfidenceFloor},
		{"movement.turning_confidence", c.Movement.TurningConfidence},
		{"feedback.boost_confidence", c.Feedback.BoostConfidence},
	}
	for _, r := range ratios {
		if r.value > 1 {
			return domain.NewConfigurationError(r.field, "must be within [0, 1]")
		}
	}
	return nil
}

// Load reads a YAML file and decodes it over Default.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode overlays a generic map (YAML, JSON, flags) on Default and validates the result.
// Durations accept strings such as "300ms" or integer nanoseconds.
func Decode(raw map[string]any) (Config, error) {
	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			intToDurationHook,
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, domain.NewConfigurationError("", "%v", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func intToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case float64:
		return time.Duration(v), nil
	}
	return data, nil
}
