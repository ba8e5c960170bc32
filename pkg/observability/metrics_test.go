package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	h := m.Hooks()
	ctx := context.Background()
	base := domain.NavigationEvent{RouteID: "corridor", Mode: domain.ModeAudio}

	start := base
	h.OnSessionStart(ctx, &start)
	h.OnWaypointEnter(ctx, &base)
	arrived := base
	arrived.Policy = "heading_confirmation"
	arrived.Dwell = 3 * time.Second
	h.OnArrived(ctx, &arrived)
	h.OnWaypointEnter(ctx, &base)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("corridor", "audio")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.waypointsEntered.WithLabelValues("corridor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.arrivals.WithLabelValues("corridor", "heading_confirmation")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.dwell))

	end := base
	end.Reason = domain.EndCompleted
	h.OnSessionEnd(ctx, &end)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsEnded.WithLabelValues("corridor", "completed")))
}

func TestNewMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := LogHooks(slog.New(slog.NewJSONHandler(&buf, nil)))
	h.OnSessionEnd(context.Background(), &domain.NavigationEvent{
		Type:      domain.EventSessionEnd,
		SessionID: "s1",
		Reason:    domain.EndStopped,
	})
	out := buf.String()
	assert.Contains(t, out, `"msg":"session_end"`)
	assert.Contains(t, out, `"session_id":"s1"`)
	assert.Contains(t, out, `"reason":"stopped"`)
}
