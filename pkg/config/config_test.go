package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15.0, cfg.Alignment.ThresholdDeg)
	assert.Equal(t, 300*time.Millisecond, cfg.Arrival.ConfirmWindow)
	assert.Equal(t, 200*time.Millisecond, cfg.Loop.TickInterval)
}

func TestValidate_RejectsNegatives(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"threshold", func(c *Config) { c.Alignment.ThresholdDeg = -1 }, "alignment.threshold_deg"},
		{"confirm", func(c *Config) { c.Arrival.ConfirmWindow = -time.Millisecond }, "arrival.confirm_window"},
		{"stable", func(c *Config) { c.Movement.StableWindow = -time.Second }, "movement.stable_window"},
		{"change threshold", func(c *Config) { c.Movement.HeadingChangeThresholdDeg = -5 }, "movement.heading_change_threshold_deg"},
		{"settle", func(c *Config) { c.Arrival.SettleDelay = -1 }, "arrival.settle_delay"},
		{"inverted pulses", func(c *Config) { c.Feedback.MaxInterval = 100 * time.Millisecond }, "feedback.max_interval"},
		{"confidence above one", func(c *Config) { c.Movement.TurningConfidence = 1.5 }, "movement.turning_confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *domain.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidate_AllowsZero(t *testing.T) {
	cfg := Default()
	cfg.Arrival.SettleDelay = 0
	cfg.Arrival.ConfirmWindow = 0
	cfg.Alignment.ThresholdDeg = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wayfinder.yaml")
	content := `
alignment:
  threshold_deg: 20
arrival:
  confirm_window: 450ms
  settle_delay: 0s
movement:
  heading_change_threshold_deg: 30
loop:
  tick_interval: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Alignment.ThresholdDeg)
	assert.Equal(t, 450*time.Millisecond, cfg.Arrival.ConfirmWindow)
	assert.Equal(t, time.Duration(0), cfg.Arrival.SettleDelay)
	assert.Equal(t, 30.0, cfg.Movement.HeadingChangeThresholdDeg)
	assert.Equal(t, 100*time.Millisecond, cfg.Loop.TickInterval)
	// untouched sections keep defaults
	assert.Equal(t, 1500*time.Millisecond, cfg.Movement.StableWindow)
	assert.Equal(t, 0.4, cfg.Movement.AccelConfidenceFloor)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("arrival:\n  confirm_window: -300ms\n"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDecode_UnknownKey(t *testing.T) {
	_, err := Decode(map[string]any{"arrival": map[string]any{"confrim_window": "1s"}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestValidate_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"nan threshold", func(c *Config) { c.Alignment.ThresholdDeg = math.NaN() }, "alignment.threshold_deg"},
		{"nan confidence", func(c *Config) { c.Feedback.BoostConfidence = math.NaN() }, "feedback.boost_confidence"},
		{"infinite delta", func(c *Config) { c.Movement.StableDeltaDeg = math.Inf(1) }, "movement.stable_delta_deg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidate_ReportsFirstRatioInOrder(t *testing.T) {
	cfg := Default()
	cfg.Movement.AccelConfidenceFloor = 2
	cfg.Feedback.BoostConfidence = 2

	for i := 0; i < 20; i++ {
		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &cfgErr)
		assert.Equal(t, "movement.accel_confidence_floor", cfgErr.Field)
	}
}

func TestLoad_RejectsNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alignment:\n  threshold_deg: .nan\n"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDecode_SingleStabilizationWindow(t *testing.T) {
	cfg, err := Decode(map[string]any{"movement": map[string]any{"stable_window": "2s"}})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Movement.StableWindow)

	_, err = Decode(map[string]any{"arrival": map[string]any{"stable_window": "1s"}})
	assert.ErrorIs(t, err, domain.ErrConfiguration, "the window is configured once, under movement")
}
