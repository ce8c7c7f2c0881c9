// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Dragonlink is the operator CLI for a running dragonlinkd. It talks
// CBOR over the daemon's control socket.
//
// Usage:
//
//	dragonlink status
//	dragonlink records
//	dragonlink stop-tracking <key>
//
// The key for stop-tracking is a canonical drone id, an aircraft hex
// address, or a collector serial number, as shown by records.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/dragonlink-project/dragonlink/lib/ipc"
	"github.com/dragonlink-project/dragonlink/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath  string
		timeout     time.Duration
		showVersion bool
	)
	flags := pflag.NewFlagSet("dragonlink", pflag.ContinueOnError)
	flags.StringVar(&socketPath, "socket", "/run/dragonlink/control.sock", "daemon control socket path")
	flags.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dragonlink [flags] status|records|stop-tracking <key>\n\nflags:\n%s", flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("dragonlink %s\n", version.Full())
		return nil
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		return fmt.Errorf("a command is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch command := args[0]; command {
	case "status":
		return showStatus(ctx, socketPath)
	case "records":
		return showRecords(ctx, socketPath)
	case "stop-tracking":
		if len(args) != 2 {
			return fmt.Errorf("stop-tracking requires exactly one key")
		}
		return stopTracking(ctx, socketPath, args[1])
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func showStatus(ctx context.Context, socketPath string) error {
	response, err := ipc.Call(ctx, socketPath, ipc.Request{Action: "status"})
	if err != nil {
		return err
	}
	status := response.Status
	if status == nil {
		return fmt.Errorf("daemon returned no status")
	}
	fmt.Printf("uptime:    %s\n", (time.Duration(status.UptimeSeconds * float64(time.Second))).Round(time.Second))
	fmt.Printf("transport: %s (queue %d)\n", status.TransportState, status.QueueDepth)
	fmt.Printf("tracked:   %d drones, %d aircraft, %d collectors\n",
		status.TrackedDrones, status.TrackedAircraft, status.TrackedStatuses)
	return nil
}

func showRecords(ctx context.Context, socketPath string) error {
	response, err := ipc.Call(ctx, socketPath, ipc.Request{Action: "records"})
	if err != nil {
		return err
	}
	if len(response.Drones)+len(response.Aircraft)+len(response.Statuses) == 0 {
		fmt.Println("no records tracked")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if len(response.Drones) > 0 {
		fmt.Fprintln(writer, "DRONE\tLAT\tLON\tALT\tRSSI\tVENDOR\tLAST SEEN")
		for _, drone := range response.Drones {
			fmt.Fprintf(writer, "%s\t%.6f\t%.6f\t%.1f\t%.0f\t%s\t%s\n",
				drone.ID, drone.Lat, drone.Lon, drone.AltitudeGeodetic,
				drone.RSSI, drone.Manufacturer, timestamp(drone.LastUpdated))
		}
		fmt.Fprintln(writer)
	}
	if len(response.Aircraft) > 0 {
		fmt.Fprintln(writer, "AIRCRAFT\tFLIGHT\tLAT\tLON\tALT\tSQUAWK\tLAST SEEN")
		for _, aircraft := range response.Aircraft {
			fmt.Fprintf(writer, "%s\t%s\t%.6f\t%.6f\t%.1f\t%s\t%s\n",
				aircraft.Hex, aircraft.Flight, aircraft.Lat, aircraft.Lon,
				aircraft.AltitudeBaro, aircraft.Squawk, timestamp(aircraft.LastUpdated))
		}
		fmt.Fprintln(writer)
	}
	if len(response.Statuses) > 0 {
		fmt.Fprintln(writer, "COLLECTOR\tLAT\tLON\tCPU%\tTEMP\tLAST SEEN")
		for _, status := range response.Statuses {
			fmt.Fprintf(writer, "%s\t%.6f\t%.6f\t%.1f\t%.1f\t%s\n",
				status.SerialNumber, status.Lat, status.Lon,
				status.CPUUsage, status.TemperatureC, timestamp(status.LastUpdated))
		}
	}
	return writer.Flush()
}

func stopTracking(ctx context.Context, socketPath, key string) error {
	response, err := ipc.Call(ctx, socketPath, ipc.Request{Action: "stop-tracking", Key: key})
	if err != nil {
		return err
	}
	if !response.Removed {
		return fmt.Errorf("no record tracked under %q", key)
	}
	fmt.Printf("stopped tracking %s\n", key)
	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format("15:04:05")
}
