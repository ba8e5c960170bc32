package main

import (
	"context"
	"os"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/aretw0/wayfinder/internal/presentation/tui"
	"github.com/aretw0/wayfinder/pkg/adapters/mqtt"
	"github.com/spf13/cobra"
)

var serveOpts cli.ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and sensor feeds",
	Long: `Starts the session manager and exposes it over HTTP (REST, SSE and WebSocket),
with Prometheus metrics at /metrics. Optionally bridges an MQTT broker and a
serial NMEA compass into running sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		tui.PrintBanner(os.Stderr, wayfinder.Version)

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return cli.Serve(ctx, env, serveOpts, cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.Addr, "addr", "a", ":8080", "Address to listen on")
	f.StringVar(&serveOpts.MQTTBroker, "mqtt", "", "MQTT broker URL (tcp://host:1883); empty disables the bridge")
	f.StringVar(&serveOpts.MQTTPrefix, "mqtt-prefix", mqtt.DefaultPrefix, "Topic prefix for sensor and cue topics")
	f.DurationVar(&serveOpts.CueInterval, "cue-interval", 0, "How often cues are published over MQTT (default: tick interval)")
	f.StringVar(&serveOpts.SerialPort, "serial", "", "Serial port of an NMEA compass (/dev/ttyUSB0)")
	f.UintVar(&serveOpts.SerialBaud, "baud", 4800, "Serial baud rate")
	f.StringVar(&serveOpts.SerialSession, "serial-session", "", "Session fed by the serial compass")
	f.StringVar(&serveOpts.SensorsPath, "sensors", "sensors.yaml", "File listing allow-listed sensor commands")
	f.StringVar(&serveOpts.Sensor, "sensor", "", "Sensor command to start from --sensors")
	f.StringVar(&serveOpts.SensorSession, "sensor-session", "", "Session fed by --sensor")
}
