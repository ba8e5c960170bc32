// Package mcp exposes navigation sessions as Model Context Protocol tools,
// and routes as resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	routesURI      = "wayfinder://routes"
	routeURIPrefix = "wayfinder://routes/"
)

// Sessions is the subset of session.Manager the server uses.
type Sessions interface {
	Open(ctx context.Context, sessionID, routeID string, mode domain.FeedbackMode) (domain.Session, error)
	Resume(ctx context.Context, sessionID string) (domain.Session, error)
	Get(sessionID string) (*wayfinder.Engine, error)
	View(sessionID string) (wayfinder.View, error)
	Subscribe(sessionID string) (*wayfinder.Subscription, error)
	List(ctx context.Context) ([]string, error)
	Routes() ports.RouteRepository
}

// SessionArgs addresses one session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// StartArgs are the arguments of start_session.
type StartArgs struct {
	SessionID string `json:"session_id"`
	RouteID   string `json:"route_id"`
	Mode      string `json:"mode"`
}

// HeadingArgs are the arguments of push_heading.
type HeadingArgs struct {
	SessionID string  `json:"session_id"`
	Deg       float64 `json:"deg"`
}

// Server wraps a session manager and exposes it as an MCP Server.
type Server struct {
	sessions  Sessions
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Server{
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("wayfinder-mcp", strings.TrimSpace(wayfinder.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List the ids of every authored route."),
	), s.handleListRoutes)

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List running and stored session ids."),
	), s.handleListSessions)

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start guiding along a route. Restarts the session if it is already running."),
		mcp.WithString("route_id", mcp.Required(), mcp.Description("Route to follow")),
		mcp.WithString("session_id", mcp.Description("Session id (generated when omitted)")),
		mcp.WithString("mode", mcp.Description("Feedback mode: audio, haptic, combined, steps or manual")),
		mcp.WithOutputSchema[wayfinder.View](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("resume_session",
		mcp.WithDescription("Resume a stored session from its last checkpoint."),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithOutputSchema[wayfinder.View](),
	), mcp.NewStructuredToolHandler(s.handleResume))

	commands := []struct {
		name, desc string
		fn         func(*wayfinder.Engine, context.Context) error
	}{
		{"stop_session", "Stop guidance.", (*wayfinder.Engine).Stop},
		{"advance", "Move to the next waypoint regardless of policy.", (*wayfinder.Engine).Advance},
		{"mark_reached", "Mark the current waypoint as reached.", (*wayfinder.Engine).MarkReached},
		{"increment_step", "Count one step.", (*wayfinder.Engine).IncrementStep},
	}
	for _, c := range commands {
		s.mcpServer.AddTool(mcp.NewTool(c.name,
			mcp.WithDescription(c.desc),
			mcp.WithString("session_id", mcp.Required()),
			mcp.WithOutputSchema[wayfinder.View](),
		), mcp.NewStructuredToolHandler(s.command(c.fn)))
	}

	s.mcpServer.AddTool(mcp.NewTool("push_heading",
		mcp.WithDescription("Feed one compass heading in degrees."),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithNumber("deg", mcp.Required(), mcp.Description("Heading in degrees, 0 is north")),
	), mcp.NewStructuredToolHandler(s.handlePushHeading))

	s.mcpServer.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Current alignment, movement, step status and cue of a session."),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithOutputSchema[wayfinder.View](),
	), mcp.NewStructuredToolHandler(s.handleView))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) handleListRoutes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.Routes().ListRoutes(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list routes failed: %v", err)), nil
	}
	return jsonResult(ids)
}

func (s *Server) handleListSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
	}
	return jsonResult(ids)
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (wayfinder.View, error) {
	mode, err := domain.ParseFeedbackMode(args.Mode)
	if err != nil {
		return wayfinder.View{}, err
	}
	snap, err := s.sessions.Open(ctx, args.SessionID, args.RouteID, mode)
	if err != nil {
		return wayfinder.View{}, fmt.Errorf("start failed: %w", err)
	}
	return s.sessions.View(snap.ID)
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (wayfinder.View, error) {
	if _, err := s.sessions.Resume(ctx, args.SessionID); err != nil {
		return wayfinder.View{}, fmt.Errorf("resume failed: %w", err)
	}
	return s.sessions.View(args.SessionID)
}

func (s *Server) command(fn func(*wayfinder.Engine, context.Context) error) mcp.StructuredToolHandlerFunc[SessionArgs, wayfinder.View] {
	return func(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (wayfinder.View, error) {
		eng, err := s.sessions.Get(args.SessionID)
		if err != nil {
			return wayfinder.View{}, err
		}
		if err := fn(eng, ctx); err != nil {
			return wayfinder.View{}, err
		}
		return eng.View(), nil
	}
}

// PushResult acknowledges a pushed sample.
type PushResult struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handlePushHeading(_ context.Context, _ mcp.CallToolRequest, args HeadingArgs) (PushResult, error) {
	sub, err := s.sessions.Subscribe(args.SessionID)
	if err != nil {
		return PushResult{}, err
	}
	defer sub.Close()
	if err := sub.PushHeading(args.Deg, time.Time{}); err != nil {
		return PushResult{}, err
	}
	return PushResult{Accepted: true}, nil
}

func (s *Server) handleView(_ context.Context, _ mcp.CallToolRequest, args SessionArgs) (wayfinder.View, error) {
	return s.sessions.View(args.SessionID)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(routesURI, "Authored routes",
		mcp.WithMIMEType("application/json"),
	), s.readRoutes)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(routeURIPrefix+"{id}", "Route definition",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readRoute)
}

func (s *Server) readRoutes(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.sessions.Routes().ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	raw, _ := json.Marshal(ids)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: routesURI, MIMEType: "application/json", Text: string(raw)},
	}, nil
}

func (s *Server) readRoute(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := strings.CutPrefix(uri, routeURIPrefix)
	if !ok || id == "" {
		return nil, errors.New("invalid route uri: " + uri)
	}
	route, err := s.sessions.Routes().GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(route)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(raw)},
	}, nil
}
