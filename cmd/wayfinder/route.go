package main

import (
	"context"

	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Inspect and check authored routes",
}

var routeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.ListRoutes(cmd.Context(), env, cmd.OutOrStdout())
	},
}

var routeInspectCmd = &cobra.Command{
	Use:   "inspect <route-id>",
	Short: "Show the waypoints of a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.InspectRoute(cmd.Context(), env, args[0], cmd.OutOrStdout())
	},
}

var routeValidateCmd = &cobra.Command{
	Use:   "validate [route-id]...",
	Short: "Check routes for consistency",
	Long:  `Checks waypoint order, ids, headings and step counts. Validates every route when none is named.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.ValidateRoutes(cmd.Context(), env, args, cmd.OutOrStdout())
	},
}

var graphSession string

var routeGraphCmd = &cobra.Command{
	Use:   "graph <route-id>",
	Short: "Export the route as a Mermaid diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.GraphRoute(cmd.Context(), env, args[0], graphSession, cmd.OutOrStdout())
	},
}

var routeWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Revalidate markdown routes as they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return cli.WatchRoutes(ctx, env, cmd.OutOrStdout())
	},
}

var routeSeedCmd = &cobra.Command{
	Use:   "seed [dir]",
	Short: "Write sample markdown routes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := globalOpts.RoutesPath
		if len(args) > 0 {
			dir = args[0]
		}
		return cli.SeedRoutes(cmd.Context(), dir, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.AddCommand(routeLsCmd, routeInspectCmd, routeValidateCmd, routeGraphCmd, routeWatchCmd, routeSeedCmd)

	routeGraphCmd.Flags().StringVar(&graphSession, "session", "", "Overlay the progress of a stored session")
}
