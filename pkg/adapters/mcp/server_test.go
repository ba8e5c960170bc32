package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/dsl"
	"github.com/aretw0/wayfinder/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	repo, err := dsl.New().
		Route("corridor", "Corridor").
		Waypoint("door").Say("Face the door").Heading(90).
		Waypoint("lab").Say("Enter the lab").
		Done().
		Build()
	require.NoError(t, err)

	m := session.NewManager(repo, session.WithEngineOptions(wayfinder.WithTickInterval(0)))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return NewServer(m, nil), m
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleListRoutes(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `["corridor"]`, text(t, res))
}

func TestSessionTools(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	view, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{SessionID: "s1", RouteID: "corridor", Mode: "manual"})
	require.NoError(t, err)
	assert.True(t, view.Session.Active)
	assert.Equal(t, "Face the door", view.Alignment.Direction)

	res, err := s.handleListSessions(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `["s1"]`, text(t, res))

	ack, err := s.handlePushHeading(ctx, mcp.CallToolRequest{}, HeadingArgs{SessionID: "s1", Deg: 90})
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	require.Eventually(t, func() bool {
		v, err := s.handleView(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
		return err == nil && v.Alignment.Aligned
	}, time.Second, 5*time.Millisecond)

	advance := s.command((*wayfinder.Engine).Advance)
	view, err = advance(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Session.CurrentWaypointIndex)

	stop := s.command((*wayfinder.Engine).Stop)
	view, err = stop(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, view.Session.Active)

	_, err = advance(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	assert.ErrorIs(t, err, domain.ErrSessionInactive)
}

func TestSessionTools_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{RouteID: "corridor", Mode: "smell"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{RouteID: "nope"})
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)

	_, err = s.handleView(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleResume(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "ghost"})
	assert.ErrorIs(t, err, session.ErrNoStore)
}

func TestRouteResources(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	contents, err := s.readRoutes(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.JSONEq(t, `["corridor"]`, contents[0].(mcp.TextResourceContents).Text)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "wayfinder://routes/corridor"
	contents, err = s.readRoute(ctx, req)
	require.NoError(t, err)
	var route domain.Route
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &route))
	assert.Equal(t, "corridor", route.ID)
	assert.Len(t, route.Waypoints, 2)

	req.Params.URI = "wayfinder://routes/nope"
	_, err = s.readRoute(ctx, req)
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)

	req.Params.URI = "file:///etc/passwd"
	_, err = s.readRoute(ctx, req)
	assert.Error(t, err)
}
