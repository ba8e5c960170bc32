package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(&buf, slog.LevelInfo).Error("Save Failed", "error", errors.New("disk full"))
	assert.Contains(t, buf.String(), `"err":"disk full"`)
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestNewJSON_Level(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(&buf, slog.LevelWarn).Info("hidden")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
