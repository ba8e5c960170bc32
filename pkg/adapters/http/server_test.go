package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/dsl"
	"github.com/aretw0/wayfinder/pkg/observability"
	"github.com/aretw0/wayfinder/pkg/session"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *httptest.Server
	manager *session.Manager
}

func setup(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()
	repo, err := dsl.New().
		Route("corridor", "Corridor").
		Waypoint("door").Say("Face the door").Heading(90).
		Waypoint("lab").Say("Enter the lab").
		Done().
		Build()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	streams := NewStreamManager(noopLogger())

	base := []session.Option{
		session.WithEngineOptions(wayfinder.WithTickInterval(0)),
		session.WithLifecycleHooks(domain.ChainHooks(metrics.Hooks(), streams.Hooks())),
	}
	m := session.NewManager(repo, append(base, opts...)...)

	srv := httptest.NewServer(NewHandler(m, WithStreams(streams), WithMetrics(reg)))
	t.Cleanup(func() {
		srv.Close()
		_ = m.Shutdown(context.Background())
	})
	return &fixture{srv: srv, manager: m}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (f *fixture) open(t *testing.T, id, mode string) {
	t.Helper()
	code, body := f.do(t, http.MethodPost, "/sessions", OpenRequest{SessionID: id, RouteID: "corridor", Mode: mode})
	require.Equal(t, http.StatusCreated, code, string(body))
}

func TestHealthAndInfo(t *testing.T) {
	f := setup(t)

	code, body := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	code, body = f.do(t, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), wayfinder.Version)
}

func TestRoutes(t *testing.T) {
	f := setup(t)

	code, body := f.do(t, http.MethodGet, "/routes", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["corridor"]`, string(body))

	code, body = f.do(t, http.MethodGet, "/routes/corridor", nil)
	assert.Equal(t, http.StatusOK, code)
	var route domain.Route
	require.NoError(t, json.Unmarshal(body, &route))
	assert.Len(t, route.Waypoints, 2)

	code, _ = f.do(t, http.MethodGet, "/routes/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOpenSession_Errors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"bad body", "{", http.StatusBadRequest},
		{"unknown mode", OpenRequest{RouteID: "corridor", Mode: "smell"}, http.StatusUnprocessableEntity},
		{"unknown route", OpenRequest{RouteID: "nope"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := f.do(t, http.MethodPost, "/sessions", tt.body)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := setup(t)
	f.open(t, "s1", "manual")

	code, body := f.do(t, http.MethodGet, "/sessions", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["s1"]`, string(body))

	code, body = f.do(t, http.MethodPost, "/sessions/s1/advance", nil)
	require.Equal(t, http.StatusOK, code)
	var view wayfinder.View
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.Session.CurrentWaypointIndex)
	assert.Equal(t, "Enter the lab", view.Alignment.Direction)

	code, _ = f.do(t, http.MethodPost, "/sessions/s1/steps", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodPost, "/sessions/s1/advance", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.Session.Completed)
	assert.False(t, view.Session.Active)

	code, _ = f.do(t, http.MethodPost, "/sessions/s1/advance", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body = f.do(t, http.MethodGet, "/sessions/s1", nil)
	assert.Equal(t, http.StatusOK, code)
	var snap domain.Session
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.True(t, snap.Completed)
	assert.Equal(t, 1, snap.CurrentWaypointIndex)

	code, _ = f.do(t, http.MethodDelete, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = f.do(t, http.MethodGet, "/sessions/s1/view", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodPost, "/sessions/s1/stop", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestResume_WithoutStore(t *testing.T) {
	f := setup(t)
	code, _ := f.do(t, http.MethodPost, "/sessions/s1/resume", nil)
	assert.Equal(t, http.StatusNotImplemented, code)
}

func TestResume_FromStore(t *testing.T) {
	f := setup(t, session.WithStore(memory.NewStore()))
	f.open(t, "s1", "manual")
	code, _ := f.do(t, http.MethodPost, "/sessions/s1/advance", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, f.manager.Close(context.Background(), "s1"))

	code, body := f.do(t, http.MethodPost, "/sessions/s1/resume", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	var snap domain.Session
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.True(t, snap.Active)
	assert.Equal(t, 1, snap.CurrentWaypointIndex)
}

func currentHeading(f *fixture, id string) float64 {
	v, err := f.manager.View(id)
	if err != nil || v.Alignment.CurrentHeading == nil {
		return -1
	}
	return *v.Alignment.CurrentHeading
}

func TestPostSamples(t *testing.T) {
	f := setup(t)
	f.open(t, "s1", "manual")

	code, body := f.do(t, http.MethodPost, "/sessions/s1/samples", `[
		{"kind": "heading", "deg": 42},
		{"kind": "step"},
		{"kind": "accel", "x": 0.1, "y": 0.2, "z": 9.8}
	]`)
	require.Equal(t, http.StatusAccepted, code, string(body))
	require.Eventually(t, func() bool { return currentHeading(f, "s1") == 42 }, time.Second, 5*time.Millisecond)

	code, _ = f.do(t, http.MethodPost, "/sessions/s1/samples", `[{"kind": "smell"}]`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPost, "/sessions/s1/samples", `{`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPost, "/sessions/ghost/samples", `[]`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubscribeEvents_Session(t *testing.T) {
	f := setup(t)
	f.open(t, "s1", "manual")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/events?session_id=s1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	expect := func(want string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", want)
				if strings.Contains(line, want) {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", want)
			}
		}
	}

	expect("event: ping")
	code, _ := f.do(t, http.MethodPost, "/sessions/s1/advance", nil)
	require.Equal(t, http.StatusOK, code)

	expect("event: waypoint_enter")
	expect(`"waypoint_id":"lab"`)
	expect("event: diff")
	expect(`"current_waypoint_index":1`)
}

func TestSubscribeEvents_RoutesNotWatchable(t *testing.T) {
	f := setup(t)
	code, _ := f.do(t, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusNotImplemented, code)
}

func TestIngest_WebSocket(t *testing.T) {
	f := setup(t)
	f.open(t, "s1", "manual")

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/sessions/s1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	deg := 135.0
	require.NoError(t, conn.WriteJSON(Sample{Kind: "heading", Deg: &deg}))
	require.Eventually(t, func() bool { return currentHeading(f, "s1") == 135 }, time.Second, 5*time.Millisecond)

	// Restarting halts the feed and the server closes the socket.
	f.open(t, "s1", "manual")
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestIngest_UnknownSession(t *testing.T) {
	f := setup(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/sessions/ghost/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	f.open(t, "s1", "audio")

	code, body := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `wayfinder_sessions_started_total{mode="audio",route_id="corridor"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewConfigurationError("x", "bad"), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrap: %w", domain.ErrRouteNotFound), http.StatusNotFound},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrSessionInactive, http.StatusConflict},
		{session.ErrNoStore, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(noopLogger())
	ch, cancel := sm.Subscribe("s1")
	for i := 0; i < 100; i++ {
		sm.Broadcast("s1", Message{Data: fmt.Sprint(i)})
	}
	assert.Len(t, ch, cap(ch))
	cancel()
	cancel()
	sm.Broadcast("s1", Message{Data: "late"})
}
