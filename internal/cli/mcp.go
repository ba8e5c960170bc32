package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/wayfinder/pkg/adapters/mcp"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP runs the MCP server on the chosen transport.
func ServeMCP(ctx context.Context, env *Env, transport, addr string) error {
	mgr := env.NewManager()
	defer func() { _ = mgr.Shutdown(context.Background()) }()

	srv := mcp.NewServer(mgr, env.Logger)

	switch transport {
	case TransportStdio:
		// JSON-RPC owns stdout.
		log.SetOutput(os.Stderr)
		env.Logger.Info("Starting MCP server (stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		env.Logger.Info("Starting MCP server (SSE)", "address", addr)
		if err := srv.ServeSSE(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}
