package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/wayfinder/pkg/ports"
)

// WatchRoutes revalidates every route that changes on disk until ctx is done.
// Only loam backed route directories can be watched.
func WatchRoutes(ctx context.Context, env *Env, out io.Writer) error {
	watchable, ok := env.Routes.(ports.Watchable)
	if !ok {
		return fmt.Errorf("route directory cannot be watched (markdown routes only)")
	}
	events, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}

	printSystemMessage(out, "Watching routes. Press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			printSystemMessage(out, "Watcher stopped.")
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			env.Logger.Info("Change detected", "route_id", id)
			printSystemMessage(out, "Change detected in '%s'.", id)
			_ = ValidateRoutes(ctx, env, []string{id}, out)
		}
	}
}
