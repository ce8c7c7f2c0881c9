// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"time"
)

// Protocol selects the outbound socket type.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolTLS Protocol = "tls"
	ProtocolUDP Protocol = "udp"
)

// State is the connection state machine position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport errors. All are recoverable: connect errors drive the
// backoff loop, send errors affect only the call that hit them.
var (
	// ErrCertificateUnavailable means the enrollment collaborator has
	// no current, valid client identity for a TLS connect attempt.
	ErrCertificateUnavailable = errors.New("client certificate unavailable")

	// ErrConnectionTimeout means a connect attempt did not reach
	// connected within the configured bound.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrQueueFull means a send while disconnected was dropped because
	// the queue is at capacity. Already-queued messages are unaffected.
	ErrQueueFull = errors.New("send queue full")
)

// Defaults for Config fields left zero.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultBackoffBase    = 2 * time.Second
	DefaultBackoffCap     = 60 * time.Second
	DefaultProbeInterval  = 30 * time.Second
	DefaultQueueCapacity  = 100
)

// Config describes one outbound destination.
type Config struct {
	Protocol Protocol
	Address  string // host:port

	// Identity supplies the client certificate for ProtocolTLS.
	// Ignored for the other protocols.
	Identity IdentityProvider

	// ServerName overrides the TLS server name; defaults to the host
	// part of Address.
	ServerName string

	// ConnectTimeout bounds one connect attempt.
	ConnectTimeout time.Duration

	// BackoffBase and BackoffCap shape the reconnect delay:
	// min(base * 2^(attempt-1), cap).
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// ProbeInterval is how often a connected stream socket is checked
	// for silent death. Zero uses the default; negative disables
	// probing.
	ProbeInterval time.Duration

	// QueueCapacity bounds the disconnected send queue.
	QueueCapacity int
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.ProbeInterval == 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
}

func (c *Config) validate() error {
	switch c.Protocol {
	case ProtocolTCP, ProtocolUDP:
	case ProtocolTLS:
		if c.Identity == nil {
			return errors.New("tls protocol requires an identity provider")
		}
	default:
		return fmt.Errorf("unknown protocol %q", c.Protocol)
	}
	if c.Address == "" {
		return errors.New("address is required")
	}
	return nil
}

// backoffDelay returns the reconnect delay before retry attempt n
// (1-based): min(base * 2^(n-1), cap).
func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
