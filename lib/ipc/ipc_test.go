// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dragonlink-project/dragonlink/model"
)

func TestFrameRoundTrip(t *testing.T) {
	var buffer bytes.Buffer
	sent := Request{Action: "stop-tracking", Key: "drone-XYZ"}
	if err := writeFrame(&buffer, sent); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	var received Request
	if err := readFrame(&buffer, &received); err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if received != sent {
		t.Errorf("round trip = %+v, want %+v", received, sent)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	request := Request{Action: "records"}
	var first, second bytes.Buffer
	writeFrame(&first, request)
	writeFrame(&second, request)
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical requests encoded differently")
	}
}

func TestServerRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "control.sock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := Listen(socketPath, logger)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx, func(request Request) Response {
		switch request.Action {
		case "records":
			return Response{OK: true, Drones: []model.DroneRecord{{ID: "drone-XYZ"}}}
		case "stop-tracking":
			return Response{OK: true, Removed: request.Key == "drone-XYZ"}
		default:
			return Response{Error: "unknown action " + request.Action}
		}
	})

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	response, err := Call(callCtx, socketPath, Request{Action: "records"})
	if err != nil {
		t.Fatalf("Call(records): %v", err)
	}
	if len(response.Drones) != 1 || response.Drones[0].ID != "drone-XYZ" {
		t.Errorf("records response = %+v", response)
	}

	response, err = Call(callCtx, socketPath, Request{Action: "stop-tracking", Key: "drone-XYZ"})
	if err != nil {
		t.Fatalf("Call(stop-tracking): %v", err)
	}
	if !response.Removed {
		t.Error("stop-tracking did not remove")
	}

	if _, err := Call(callCtx, socketPath, Request{Action: "dance"}); err == nil {
		t.Error("unknown action returned no error")
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "control.sock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first, err := Listen(socketPath, logger)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	// The socket file lingers after an unclean shutdown; a new Listen
	// must replace it.
	second, err := Listen(socketPath, logger)
	if err != nil {
		t.Fatalf("rebind over stale socket: %v", err)
	}
	second.Close()
}
