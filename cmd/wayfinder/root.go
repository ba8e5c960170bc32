package main

import (
	"fmt"
	"os"

	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

var globalOpts cli.Options

var rootCmd = &cobra.Command{
	Use:   "wayfinder",
	Short: "Wayfinder guides people along authored routes with audio and haptic cues",
	Long: `Wayfinder turns compass, accelerometer and step samples into navigation cues,
advancing through the waypoints of an authored route as each one is reached.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup resolves the persistent flags and closes the environment with the command.
func setup(cmd *cobra.Command) (*cli.Env, error) {
	env, err := cli.Setup(globalOpts)
	if err != nil {
		return nil, err
	}
	cobra.OnFinalize(func() { _ = env.Close() })
	return env, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalOpts.RoutesPath, "routes", ".", "Directory containing the route files")
	flags.StringVar(&globalOpts.ConfigPath, "config", "", "YAML file overriding timing and threshold defaults")
	flags.StringVar(&globalOpts.Store, "store", cli.StoreFile, "Session store: file, memory or redis")
	flags.StringVar(&globalOpts.RedisURL, "redis", "", "Redis URL for --store redis (redis://host:6379/0)")
	flags.StringVar(&globalOpts.StoreKey, "store-key", os.Getenv("WAYFINDER_STORE_KEY"), "Hex AES-256 key sealing stored snapshots (env WAYFINDER_STORE_KEY)")
	flags.BoolVar(&globalOpts.Debug, "debug", false, "Log debug output to stderr")
}
