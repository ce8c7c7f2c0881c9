// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dragonlink-project/dragonlink/lib/clock"
)

// Conn is one outbound destination with reconnect, framing, and a
// bounded disconnected-send queue. Safe for concurrent use.
type Conn struct {
	config Config
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	lastError  error
	netConn    net.Conn
	queue      [][]byte
	loopCtx    context.Context
	cancelLoop context.CancelFunc
}

// New validates the config and returns a disconnected Conn.
func New(config Config, clk clock.Clock, logger *slog.Logger) (*Conn, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("transport config: %w", err)
	}
	return &Conn{
		config: config,
		clock:  clk,
		logger: logger,
		state:  StateDisconnected,
	}, nil
}

// State returns the current state machine position.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent connect or send failure, or nil.
func (c *Conn) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// QueueDepth returns the number of messages waiting for a connection.
func (c *Conn) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Connect starts the connect loop. A no-op while a loop is already
// active, whatever state it is in: between attempts the loop parks on
// the backoff timer in StateFailed, and spawning a second loop there
// would break the single-flight invariant and orphan the first. The
// loop retries failed attempts with exponential backoff until ctx is
// cancelled or Disconnect is called.
func (c *Conn) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnecting || c.state == StateConnected {
		return
	}
	if c.state == StateFailed && c.loopCtx != nil && c.loopCtx.Err() == nil {
		return
	}
	c.loopCtx, c.cancelLoop = context.WithCancel(ctx)
	c.state = StateConnecting
	go c.connectLoop(c.loopCtx)
}

// Disconnect cancels any in-flight connect, closes the socket, and
// clears the send queue. Safe to call repeatedly.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelLoop != nil {
		c.cancelLoop()
		c.cancelLoop = nil
	}
	if c.netConn != nil {
		c.netConn.Close()
		c.netConn = nil
	}
	c.queue = nil
	c.state = StateDisconnected
	c.lastError = nil
}

// Send delivers one payload. While not connected the payload joins the
// bounded queue; a full queue drops this payload with ErrQueueFull and
// leaves the queue untouched. A send error on a live stream closes the
// connection and starts a reconnect; the error is returned only to
// this caller.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		if len(c.queue) >= c.config.QueueCapacity {
			c.logger.Warn("send queue full, dropping message",
				"capacity", c.config.QueueCapacity,
				"state", c.state.String(),
			)
			return ErrQueueFull
		}
		c.queue = append(c.queue, payload)
		return nil
	}
	if err := c.writeLocked(payload); err != nil {
		c.failLocked(err)
		c.resumeLocked()
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// writeLocked frames and writes one payload on the live socket. UDP is
// fire-and-forget: an unreachable destination still counts as sent.
func (c *Conn) writeLocked(payload []byte) error {
	if c.config.Protocol == ProtocolUDP {
		c.netConn.Write(payload)
		return nil
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	_, err := c.netConn.Write(frame)
	return err
}

// failLocked records a failure and closes the socket.
func (c *Conn) failLocked(err error) {
	c.lastError = err
	c.state = StateFailed
	if c.netConn != nil {
		c.netConn.Close()
		c.netConn = nil
	}
}

// resumeLocked restarts the connect loop after a connection died. The
// single-flight invariant holds because callers only reach it from
// StateFailed under the mutex.
func (c *Conn) resumeLocked() {
	if c.loopCtx == nil || c.loopCtx.Err() != nil {
		return
	}
	c.state = StateConnecting
	go c.connectLoop(c.loopCtx)
}

// connectLoop dials until connected or cancelled, backing off
// exponentially between attempts. On success it flushes the queue in
// order and, for stream protocols, starts the liveness prober.
func (c *Conn) connectLoop(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		netConn, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			if ctx.Err() != nil {
				c.mu.Unlock()
				netConn.Close()
				return
			}
			c.netConn = netConn
			c.state = StateConnected
			c.lastError = nil
			flushErr := c.flushQueueLocked()
			c.mu.Unlock()
			if flushErr != nil {
				c.logger.Warn("queue flush failed, reconnecting", "error", flushErr)
				continue
			}
			c.logger.Info("connected",
				"protocol", string(c.config.Protocol),
				"address", c.config.Address,
			)
			if c.config.Protocol != ProtocolUDP && c.config.ProbeInterval > 0 {
				go c.probeLoop(ctx, netConn)
			}
			return
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.lastError = err
		c.state = StateFailed
		c.mu.Unlock()

		delay := backoffDelay(c.config.BackoffBase, c.config.BackoffCap, attempt)
		c.logger.Warn("connect failed, backing off",
			"error", err,
			"attempt", attempt,
			"backoff", delay,
		)
		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()
	}
}

// flushQueueLocked writes the queued messages in order. On a write
// error the connection fails; the unsent remainder (including the
// message that failed) stays queued for the next connection.
func (c *Conn) flushQueueLocked() error {
	for len(c.queue) > 0 {
		if err := c.writeLocked(c.queue[0]); err != nil {
			c.failLocked(err)
			return err
		}
		c.queue = c.queue[1:]
	}
	return nil
}

// dial performs one connect attempt. For TLS the client identity is
// requested first and a missing or invalid identity fails fast without
// opening a socket.
func (c *Conn) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()
	dialer := &net.Dialer{}

	var netConn net.Conn
	var err error
	switch c.config.Protocol {
	case ProtocolUDP:
		netConn, err = dialer.DialContext(dialCtx, "udp", c.config.Address)
	case ProtocolTCP:
		netConn, err = dialer.DialContext(dialCtx, "tcp", c.config.Address)
	case ProtocolTLS:
		netConn, err = c.dialTLS(dialCtx, dialer)
	}
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w after %s: %v", ErrConnectionTimeout, c.config.ConnectTimeout, err)
		}
		return nil, err
	}
	return netConn, nil
}

func (c *Conn) dialTLS(ctx context.Context, dialer *net.Dialer) (net.Conn, error) {
	identity, err := c.config.Identity.CurrentIdentity()
	if err != nil {
		return nil, err
	}
	if !c.config.Identity.Valid() {
		return nil, ErrCertificateUnavailable
	}
	serverName := c.config.ServerName
	if serverName == "" {
		host, _, splitErr := net.SplitHostPort(c.config.Address)
		if splitErr != nil {
			return nil, fmt.Errorf("address %q: %w", c.config.Address, splitErr)
		}
		serverName = host
	}
	tlsDialer := &tls.Dialer{
		NetDialer: dialer,
		Config: &tls.Config{
			Certificates: []tls.Certificate{identity.Certificate},
			RootCAs:      identity.RootCAs,
			ServerName:   serverName,
		},
	}
	return tlsDialer.DialContext(ctx, "tcp", c.config.Address)
}

// probeLoop periodically checks a connected stream socket for silent
// death (the peer vanished without a FIN). A dead socket fails the
// connection and restarts the connect loop. The prober exits when the
// socket it was started for is no longer current.
func (c *Conn) probeLoop(ctx context.Context, probed net.Conn) {
	ticker := c.clock.NewTicker(c.config.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		current := c.netConn == probed && c.state == StateConnected
		c.mu.Unlock()
		if !current {
			return
		}
		if err := probeConn(probed); err != nil {
			c.mu.Lock()
			if c.netConn == probed {
				c.logger.Warn("liveness probe found dead connection", "error", err)
				c.failLocked(fmt.Errorf("liveness probe: %w", err))
				c.resumeLocked()
			}
			c.mu.Unlock()
			return
		}
	}
}

// probeConn does a short non-blocking read. A timeout means the peer
// is simply quiet (healthy); EOF or a hard error means the connection
// is dead. Any data the peer did send is discarded.
func probeConn(netConn net.Conn) error {
	if err := netConn.SetReadDeadline(time.Now().Add(10 * time.Millisecond)); err != nil {
		return err
	}
	defer netConn.SetReadDeadline(time.Time{})
	buffer := make([]byte, 256)
	_, err := netConn.Read(buffer)
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return err
}
