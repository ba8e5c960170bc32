package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ListSessions prints every stored session id.
func ListSessions(ctx context.Context, env *Env, out io.Writer) error {
	ids, err := env.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No stored sessions found.")
		return nil
	}
	fmt.Fprintln(out, "Stored Sessions:")
	for _, id := range ids {
		fmt.Fprintln(out, "- "+id)
	}
	return nil
}

// InspectSession pretty prints a stored snapshot as JSON.
func InspectSession(ctx context.Context, env *Env, sessionID string, out io.Writer) error {
	snap, err := env.Store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// RemoveSessions deletes the given sessions, or all of them when all is set.
func RemoveSessions(ctx context.Context, env *Env, ids []string, all bool, out io.Writer) error {
	if all {
		stored, err := env.Store.List(ctx)
		if err != nil {
			return err
		}
		ids = stored
	}

	var errs []error
	for _, id := range ids {
		if err := env.Store.Delete(ctx, id); err != nil {
			fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}
