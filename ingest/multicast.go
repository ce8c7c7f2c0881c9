// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// MulticastListener receives inbound tactical-XML events from a UDP
// multicast group and feeds complete events into the worker.
type MulticastListener struct {
	group         string
	interfaceName string
	logger        *slog.Logger
}

// NewMulticastListener prepares a listener on the given "group:port"
// address. interfaceName may be empty to let the kernel choose.
func NewMulticastListener(group, interfaceName string, logger *slog.Logger) *MulticastListener {
	return &MulticastListener{group: group, interfaceName: interfaceName, logger: logger}
}

// Run joins the group and forwards complete events to out until ctx is
// cancelled. Datagrams normally carry one whole event; fragments are
// accumulated until the closing tag arrives.
func (l *MulticastListener) Run(ctx context.Context, out chan<- []byte) error {
	address, err := net.ResolveUDPAddr("udp", l.group)
	if err != nil {
		return fmt.Errorf("multicast group %q: %w", l.group, err)
	}
	var networkInterface *net.Interface
	if l.interfaceName != "" {
		networkInterface, err = net.InterfaceByName(l.interfaceName)
		if err != nil {
			return fmt.Errorf("multicast interface %q: %w", l.interfaceName, err)
		}
	}
	conn, err := net.ListenMulticastUDP("udp", networkInterface, address)
	if err != nil {
		return fmt.Errorf("join multicast %s: %w", l.group, err)
	}
	defer conn.Close()
	conn.SetReadBuffer(1 << 20)
	l.logger.Info("multicast listener joined", "group", l.group)

	var pending []byte
	buffer := make([]byte, 64<<10)
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("multicast read: %w", err)
		}
		pending = append(pending, buffer[:n]...)
		var events [][]byte
		events, pending = extractEvents(pending)
		for _, event := range events {
			select {
			case out <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// extractEvents pulls complete <event>…</event> documents off the
// front of the accumulation buffer, returning them and the unconsumed
// remainder. Bytes before the first opening tag are discarded.
func extractEvents(data []byte) ([][]byte, []byte) {
	const (
		openTag  = "<event"
		closeTag = "</event>"
	)
	var events [][]byte
	for {
		start := bytes.Index(data, []byte(openTag))
		if start < 0 {
			// No event start in the buffer: nothing to keep.
			return events, nil
		}
		end := bytes.Index(data[start:], []byte(closeTag))
		if end < 0 {
			return events, data[start:]
		}
		end = start + end + len(closeTag)
		event := make([]byte, end-start)
		copy(event, data[start:end])
		events = append(events, event)
		data = data[end:]
	}
}
