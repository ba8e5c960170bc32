package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/wayfinder"
	httpAdapter "github.com/aretw0/wayfinder/pkg/adapters/http"
	"github.com/aretw0/wayfinder/pkg/adapters/mqtt"
	"github.com/aretw0/wayfinder/pkg/adapters/nmea"
	"github.com/aretw0/wayfinder/pkg/adapters/process"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/observability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServeOptions configures the long running server.
type ServeOptions struct {
	Addr string

	MQTTBroker  string
	MQTTPrefix  string
	CueInterval time.Duration

	SerialPort    string
	SerialBaud    uint
	SerialSession string

	// SensorsPath lists allow-listed sensor commands; Sensor picks the one
	// started for SensorSession.
	SensorsPath   string
	Sensor        string
	SensorSession string
}

// Serve runs the HTTP API and the optional sensor feeds until ctx is done.
func Serve(ctx context.Context, env *Env, opts ServeOptions, out io.Writer) error {
	logger := env.Logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	streams := httpAdapter.NewStreamManager(logger)
	mgr := env.NewManager(metrics.Hooks(), streams.Hooks())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mgr.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Session shutdown incomplete", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	defer wg.Wait()

	if opts.MQTTBroker != "" {
		client, err := mqtt.Connect(opts.MQTTBroker, "wayfinder-"+uuid.NewString()[:8])
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		bridge := mqtt.NewBridge(client, mgr, mqtt.WithPrefix(opts.MQTTPrefix), mqtt.WithLogger(logger))
		if err := bridge.Start(); err != nil {
			return err
		}
		defer func() { _ = bridge.Stop() }()

		interval := opts.CueInterval
		if interval <= 0 {
			interval = env.Config.Loop.TickInterval
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bridge.Run(ctx, interval)
		}()
		printSystemMessage(out, "MQTT bridge on %s (prefix %s).", opts.MQTTBroker, opts.MQTTPrefix)
	}

	if opts.SerialPort != "" {
		if opts.SerialSession == "" {
			return errors.New("--serial requires --serial-session")
		}
		port, err := nmea.OpenSerial(nmea.SerialConfig{Port: opts.SerialPort, BaudRate: opts.SerialBaud})
		if err != nil {
			return err
		}
		defer port.Close()

		reader := nmea.NewReader(port, nmea.WithLogger(logger))
		sink := &followSink{sessions: mgr, sessionID: opts.SerialSession}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reader.Run(ctx, sink); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Compass feed stopped", "err", err)
			}
		}()
		printSystemMessage(out, "Compass on %s feeding session '%s'.", opts.SerialPort, opts.SerialSession)
	}

	if opts.Sensor != "" {
		if opts.SensorSession == "" {
			return errors.New("--sensor requires --sensor-session")
		}
		sensors, err := process.LoadSensors(opts.SensorsPath)
		if err != nil {
			return err
		}
		procs := process.NewRunner(process.WithRegistry(sensors), process.WithLogger(logger))
		sink := &followSink{sessions: mgr, sessionID: opts.SensorSession}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := procs.Run(ctx, opts.Sensor, opts.SensorSession, sink); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Sensor process stopped", "sensor", opts.Sensor, "err", err)
			}
		}()
		printSystemMessage(out, "Sensor '%s' feeding session '%s'.", opts.Sensor, opts.SensorSession)
	}

	srv := &http.Server{
		Addr: opts.Addr,
		Handler: httpAdapter.NewHandler(mgr,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithMetrics(reg),
			httpAdapter.WithLogger(logger),
		),
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Serving on %s.", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		printSystemMessage(out, "Server stopped.")
		return nil
	}
}

// subscriber is the part of session.Manager a followSink needs.
type subscriber interface {
	Subscribe(sessionID string) (*wayfinder.Subscription, error)
}

// followSink feeds one session id across restarts, reopening the
// subscription whenever the previous feed was halted. Samples arriving while
// the session is not open are dropped.
type followSink struct {
	sessions  subscriber
	sessionID string

	mu  sync.Mutex
	sub *wayfinder.Subscription
}

func (f *followSink) current() *wayfinder.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil && f.sub.Active() {
		return f.sub
	}
	sub, err := f.sessions.Subscribe(f.sessionID)
	if err != nil {
		f.sub = nil
		return nil
	}
	f.sub = sub
	return sub
}

func (f *followSink) PushHeading(deg float64, at time.Time) error {
	if sub := f.current(); sub != nil {
		return sub.PushHeading(deg, at)
	}
	return nil
}

func (f *followSink) PushAccel(v domain.Vector, at time.Time) error {
	if sub := f.current(); sub != nil {
		return sub.PushAccel(v, at)
	}
	return nil
}

func (f *followSink) PushStep(at time.Time) error {
	if sub := f.current(); sub != nil {
		return sub.PushStep(at)
	}
	return nil
}
