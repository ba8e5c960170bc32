package main

import (
	"context"

	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

var replayOpts cli.ReplayOptions

var replayCmd = &cobra.Command{
	Use:   "replay <route-id> [script.ndjson]",
	Short: "Replay a recorded sensor script against a route",
	Long: `Replays an NDJSON sensor script on a virtual clock and prints every event and
state change. Reads the script from stdin when no file is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		replayOpts.RouteID = args[0]
		if len(args) > 1 {
			replayOpts.Script = args[1]
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return cli.Replay(ctx, env, replayOpts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayOpts.Mode, "mode", "m", "combined", "Feedback mode: audio, haptic, combined, steps or manual")
	replayCmd.Flags().BoolVar(&replayOpts.JSON, "json", false, "Write NDJSON records instead of text")
	replayCmd.Flags().DurationVar(&replayOpts.Tick, "tick", 0, "Synthesized tick spacing (default: configured tick interval)")
}
