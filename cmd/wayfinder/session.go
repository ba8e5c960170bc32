package main

import (
	"errors"

	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, and remove session snapshots kept by the selected --store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.ListSessions(cmd.Context(), env, cmd.OutOrStdout())
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the snapshot of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.InspectSession(cmd.Context(), env, args[0], cmd.OutOrStdout())
	},
}

var removeAll bool

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !removeAll && len(args) == 0 {
			return errors.New("name at least one session or pass --all")
		}
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.RemoveSessions(cmd.Context(), env, args, removeAll, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)

	sessionRmCmd.Flags().BoolVar(&removeAll, "all", false, "Remove every stored session")
}
