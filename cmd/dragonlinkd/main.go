// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Dragonlinkd bridges drone Remote ID telemetry to a tactical network.
// It subscribes to the collector's telemetry and status feeds, polls an
// optional transponder receiver, merges everything into canonical
// records, and streams tactical XML events to the configured
// destination over TCP, TLS, or UDP.
//
// On startup:
//  1. Loads and validates the YAML configuration.
//  2. Opens the outbound transport (queueing until it connects).
//  3. Starts the pipeline worker and the inbound sources.
//  4. Serves operator requests on the control socket.
//
// SIGUSR1 backgrounds the pipeline (slower idle polling); SIGUSR2
// foregrounds it again. SIGINT/SIGTERM shut down.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dragonlink-project/dragonlink/adsb"
	"github.com/dragonlink-project/dragonlink/cot"
	"github.com/dragonlink-project/dragonlink/ingest"
	"github.com/dragonlink-project/dragonlink/lib/clock"
	"github.com/dragonlink-project/dragonlink/lib/config"
	"github.com/dragonlink-project/dragonlink/lib/ipc"
	"github.com/dragonlink-project/dragonlink/lib/logging"
	"github.com/dragonlink-project/dragonlink/lib/metrics"
	"github.com/dragonlink-project/dragonlink/lib/version"
	"github.com/dragonlink-project/dragonlink/model"
	"github.com/dragonlink-project/dragonlink/transport"
	"github.com/dragonlink-project/dragonlink/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "/etc/dragonlink/config.yaml", "path to the configuration file")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("dragonlinkd %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	startedAt := clk.Now()
	instruments := metrics.New()

	manufacturers := wire.DefaultManufacturerTable()
	if len(cfg.Manufacturers) > 0 {
		manufacturers = wire.NewManufacturerTable(cfg.Manufacturers)
	}

	// Outbound transport. For TLS the identity is loaded lazily so a
	// missing certificate fails the connect attempt, not startup.
	transportConfig := transport.Config{
		Protocol:   transport.Protocol(cfg.Output.Protocol),
		Address:    cfg.Output.Address,
		ServerName: cfg.Output.ServerName,
	}
	if transportConfig.Protocol == transport.ProtocolTLS {
		transportConfig.Identity = transport.NewFileIdentity(
			cfg.Output.CertFile, cfg.Output.KeyFile, cfg.Output.CAFile, clk)
	}
	conn, err := transport.New(transportConfig, clk, logger)
	if err != nil {
		return fmt.Errorf("configuring transport: %w", err)
	}
	conn.Connect(ctx)
	defer conn.Disconnect()
	logger.Info("transport started",
		"protocol", cfg.Output.Protocol,
		"address", cfg.Output.Address,
	)

	worker := ingest.NewWorker(ingest.WorkerConfig{
		Tracker:                model.NewTracker(),
		Manufacturers:          manufacturers,
		Encoder:                &cot.Encoder{StaleAfter: cfg.Output.StaleAfter.Std()},
		Sender:                 conn,
		Clock:                  clk,
		Logger:                 logger,
		Metrics:                instruments,
		DroneInterval:          cfg.Output.DroneInterval.Std(),
		AircraftInterval:       cfg.Output.AircraftInterval.Std(),
		PollInterval:           cfg.Ingest.PollInterval.Std(),
		BackgroundPollInterval: cfg.Ingest.BackgroundPollInterval.Std(),
	})
	go worker.Run(ctx)

	// Inbound sources. Each runs until ctx is cancelled; a source that
	// fails takes the process down so the supervisor restarts it clean.
	errs := make(chan error, 4)
	runSource := func(name string, fn func(context.Context) error) {
		go func() {
			if err := fn(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	telemetry := ingest.NewSubscription(cfg.Ingest.TelemetryEndpoint, logger)
	runSource("telemetry subscription", func(ctx context.Context) error {
		return telemetry.Run(ctx, worker.Telemetry())
	})
	status := ingest.NewSubscription(cfg.Ingest.StatusEndpoint, logger)
	runSource("status subscription", func(ctx context.Context) error {
		return status.Run(ctx, worker.Status())
	})
	if cfg.Ingest.MulticastGroup != "" {
		listener := ingest.NewMulticastListener(
			cfg.Ingest.MulticastGroup, cfg.Ingest.MulticastInterface, logger)
		runSource("multicast listener", func(ctx context.Context) error {
			return listener.Run(ctx, worker.Multicast())
		})
	}
	if cfg.ADSB.Enabled {
		poller := adsb.NewPoller(cfg.ADSB.URL, cfg.ADSB.PollInterval.Std(), clk, logger)
		runSource("aircraft poller", func(ctx context.Context) error {
			return poller.Run(ctx, worker.Aircraft())
		})
	}

	// Control socket for the operator CLI.
	control, err := ipc.Listen(cfg.Control.SocketPath, logger)
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer control.Close()
	go control.Serve(ctx, func(request ipc.Request) ipc.Response {
		return handleControl(ctx, request, worker, conn, clk, startedAt)
	})
	logger.Info("control socket listening", "socket", cfg.Control.SocketPath)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", instruments.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		logger.Info("metrics listening", "address", cfg.Metrics.Listen)
	}

	// Power-state signals from the platform.
	background := make(chan os.Signal, 2)
	signal.Notify(background, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range background {
			backgrounded := sig == syscall.SIGUSR1
			worker.SetBackgrounded(backgrounded)
			logger.Info("poll mode changed", "backgrounded", backgrounded)
		}
	}()
	defer signal.Stop(background)

	select {
	case err := <-errs:
		stop()
		shutdownMetrics(metricsServer)
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownMetrics(metricsServer)
	return nil
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

// handleControl maps one control request onto the worker. Queries ride
// the worker's own loop, so replies reflect a consistent model state.
func handleControl(ctx context.Context, request ipc.Request, worker *ingest.Worker, conn *transport.Conn, clk clock.Clock, startedAt time.Time) ipc.Response {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch request.Action {
	case "status":
		result, err := worker.Snapshot(ctx)
		if err != nil {
			return ipc.Response{Error: err.Error()}
		}
		return ipc.Response{OK: true, Status: &ipc.DaemonStatus{
			UptimeSeconds:   clk.Now().Sub(startedAt).Seconds(),
			TrackedDrones:   len(result.Drones),
			TrackedAircraft: len(result.Aircraft),
			TrackedStatuses: len(result.Statuses),
			TransportState:  conn.State().String(),
			QueueDepth:      conn.QueueDepth(),
		}}
	case "records":
		result, err := worker.Snapshot(ctx)
		if err != nil {
			return ipc.Response{Error: err.Error()}
		}
		return ipc.Response{
			OK:       true,
			Drones:   result.Drones,
			Aircraft: result.Aircraft,
			Statuses: result.Statuses,
		}
	case "stop-tracking":
		if request.Key == "" {
			return ipc.Response{Error: "stop-tracking requires a key"}
		}
		removed, err := worker.StopTracking(ctx, request.Key)
		if err != nil {
			return ipc.Response{Error: err.Error()}
		}
		return ipc.Response{OK: true, Removed: removed}
	default:
		return ipc.Response{Error: fmt.Sprintf("unknown action %q", request.Action)}
	}
}
