// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dragonlink-project/dragonlink/lib/clock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackoffSequence(t *testing.T) {
	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, expected := range want {
		attempt := i + 1
		if got := backoffDelay(2*time.Second, 60*time.Second, attempt); got != expected {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, expected)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		config Config
	}{
		{"unknown protocol", Config{Protocol: "carrier-pigeon", Address: "host:1"}},
		{"missing address", Config{Protocol: ProtocolTCP}},
		{"tls without identity", Config{Protocol: ProtocolTLS, Address: "host:1"}},
	}
	for _, tc := range cases {
		if _, err := New(tc.config, clock.Real(), discardLogger()); err == nil {
			t.Errorf("%s: config accepted", tc.name)
		}
	}
}

func readFrame(t *testing.T, reader io.Reader) []byte {
	t.Helper()
	header := make([]byte, 4)
	if _, err := io.ReadFull(reader, header); err != nil {
		t.Fatalf("read frame header: %v", err)
	}
	payload := make([]byte, binary.BigEndian.Uint32(header))
	if _, err := io.ReadFull(reader, payload); err != nil {
		t.Fatalf("read frame payload: %v", err)
	}
	return payload
}

func TestQueueDropsNewestWhenFullAndFlushesInOrder(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	conn, err := New(Config{
		Protocol: ProtocolTCP,
		Address:  listener.Addr().String(),
	}, clock.Real(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Disconnect()

	for i := 0; i < DefaultQueueCapacity; i++ {
		if err := conn.Send([]byte(fmt.Sprintf("msg-%03d", i))); err != nil {
			t.Fatalf("queued send %d: %v", i, err)
		}
	}
	if err := conn.Send([]byte("overflow")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("send into full queue: err = %v, want ErrQueueFull", err)
	}
	if depth := conn.QueueDepth(); depth != DefaultQueueCapacity {
		t.Fatalf("queue depth after overflow = %d, want %d", depth, DefaultQueueCapacity)
	}

	conn.Connect(context.Background())
	accepted, err := listener.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer accepted.Close()
	accepted.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The queued 100 flush first, in original order; the dropped
	// overflow message never appears.
	for i := 0; i < DefaultQueueCapacity; i++ {
		want := fmt.Sprintf("msg-%03d", i)
		if got := string(readFrame(t, accepted)); got != want {
			t.Fatalf("flushed frame %d = %q, want %q", i, got, want)
		}
	}

	if err := conn.Send([]byte("after-connect")); err != nil {
		t.Fatalf("send after connect: %v", err)
	}
	if got := string(readFrame(t, accepted)); got != "after-connect" {
		t.Errorf("post-flush frame = %q, want after-connect", got)
	}
}

func waitForState(t *testing.T, conn *Conn, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", conn.State(), want)
}

func TestConnectIsNoOpWhenActive(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	conn, err := New(Config{
		Protocol:      ProtocolTCP,
		Address:       listener.Addr().String(),
		ProbeInterval: -1,
	}, clock.Real(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Disconnect()

	conn.Connect(context.Background())
	if _, err := listener.Accept(); err != nil {
		t.Fatal(err)
	}
	waitForState(t, conn, StateConnected)

	// A second Connect must not open another socket.
	conn.Connect(context.Background())
	listener.(*net.TCPListener).SetDeadline(time.Now().Add(300 * time.Millisecond))
	if _, err := listener.Accept(); err == nil {
		t.Error("redundant Connect opened a second connection")
	}
}

func TestUDPSendsUnframed(t *testing.T) {
	packetConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer packetConn.Close()

	conn, err := New(Config{
		Protocol: ProtocolUDP,
		Address:  packetConn.LocalAddr().String(),
	}, clock.Real(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Disconnect()

	conn.Connect(context.Background())
	waitForState(t, conn, StateConnected)
	if err := conn.Send([]byte("<event/>")); err != nil {
		t.Fatalf("udp send: %v", err)
	}

	packetConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buffer := make([]byte, 1024)
	n, _, err := packetConn.ReadFrom(buffer)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	if string(buffer[:n]) != "<event/>" {
		t.Errorf("datagram = %q, want raw unframed payload", buffer[:n])
	}
}

type unavailableIdentity struct{}

func (unavailableIdentity) CurrentIdentity() (*Identity, error) {
	return nil, fmt.Errorf("%w: not enrolled", ErrCertificateUnavailable)
}

func (unavailableIdentity) Valid() bool { return false }

func TestTLSFailsFastWithoutIdentity(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	conn, err := New(Config{
		Protocol: ProtocolTLS,
		Address:  "127.0.0.1:1",
		Identity: unavailableIdentity{},
	}, fake, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Disconnect()

	conn.Connect(context.Background())

	// The attempt fails before any socket dial and the loop parks on
	// the backoff timer.
	fake.WaitForWaiters(1)
	if state := conn.State(); state != StateFailed {
		t.Errorf("state = %v, want failed", state)
	}
	if lastError := conn.LastError(); !errors.Is(lastError, ErrCertificateUnavailable) {
		t.Errorf("last error = %v, want ErrCertificateUnavailable", lastError)
	}

	// The failure is retried, not terminal.
	fake.Advance(2 * time.Second)
	fake.WaitForWaiters(1)
	if lastError := conn.LastError(); !errors.Is(lastError, ErrCertificateUnavailable) {
		t.Errorf("after retry: last error = %v", lastError)
	}
}

func TestConnectWhileBackingOffIsNoOp(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	conn, err := New(Config{
		Protocol: ProtocolTLS,
		Address:  "127.0.0.1:1",
		Identity: unavailableIdentity{},
	}, fake, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Disconnect()

	conn.Connect(context.Background())
	fake.WaitForWaiters(1)
	if state := conn.State(); state != StateFailed {
		t.Fatalf("state = %v, want failed", state)
	}

	// The loop is parked on its backoff timer in the failed state.
	// Connect must not start a second loop there: a second loop would
	// register a second backoff timer and orphan the first loop's
	// cancel function.
	conn.Connect(context.Background())
	time.Sleep(50 * time.Millisecond)
	if waiters := fake.Waiters(); waiters != 1 {
		t.Fatalf("backoff waiters = %d, want 1 (single-flight connect)", waiters)
	}
	if state := conn.State(); state != StateFailed {
		t.Errorf("state = %v, want failed left untouched by the no-op", state)
	}

	// The parked loop is still owned: Disconnect cancels it, and a
	// fresh Connect is allowed afterwards.
	conn.Disconnect()
	if state := conn.State(); state != StateDisconnected {
		t.Fatalf("state after disconnect = %v", state)
	}
	conn.Connect(context.Background())
	// The abandoned timer of the cancelled loop still counts as a
	// waiter, so the fresh loop's backoff timer is the second.
	fake.WaitForWaiters(2)
	if state := conn.State(); state != StateFailed {
		t.Errorf("state after reconnect attempt = %v, want failed", state)
	}
}

func TestDisconnectClearsQueueAndIsIdempotent(t *testing.T) {
	conn, err := New(Config{
		Protocol: ProtocolTCP,
		Address:  "127.0.0.1:1",
	}, clock.Real(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	conn.Send([]byte("queued"))
	if depth := conn.QueueDepth(); depth != 1 {
		t.Fatalf("queue depth = %d", depth)
	}

	conn.Disconnect()
	if depth := conn.QueueDepth(); depth != 0 {
		t.Errorf("queue not cleared: depth = %d", depth)
	}
	if state := conn.State(); state != StateDisconnected {
		t.Errorf("state = %v, want disconnected", state)
	}
	conn.Disconnect()
	conn.Disconnect()
}

func TestProbeTriggersReconnect(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	conn, err := New(Config{
		Protocol:      ProtocolTCP,
		Address:       listener.Addr().String(),
		ProbeInterval: 20 * time.Millisecond,
	}, clock.Real(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Disconnect()

	conn.Connect(context.Background())
	accepted, err := listener.Accept()
	if err != nil {
		t.Fatal(err)
	}
	waitForState(t, conn, StateConnected)

	// Kill the server side; the prober should notice and reconnect.
	accepted.Close()
	listener.(*net.TCPListener).SetDeadline(time.Now().Add(5 * time.Second))
	reconnected, err := listener.Accept()
	if err != nil {
		t.Fatalf("no reconnect after dead peer: %v", err)
	}
	reconnected.Close()
}
