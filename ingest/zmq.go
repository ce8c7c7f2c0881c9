// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-zeromq/zmq4"
)

// Subscription is one ZeroMQ SUB socket feeding payloads into the
// worker.
type Subscription struct {
	endpoint string
	logger   *slog.Logger
}

// NewSubscription prepares a subscription to the given endpoint
// ("tcp://host:port"). The socket subscribes to everything.
func NewSubscription(endpoint string, logger *slog.Logger) *Subscription {
	return &Subscription{endpoint: endpoint, logger: logger}
}

// Run connects and forwards every received frame to out until ctx is
// cancelled. Dial failures are returned; receive failures after a
// successful dial end the loop (the SUB socket reconnects internally,
// so a receive error means the context ended or the socket is gone).
func (s *Subscription) Run(ctx context.Context, out chan<- []byte) error {
	socket := zmq4.NewSub(ctx)
	defer socket.Close()

	if err := socket.Dial(s.endpoint); err != nil {
		return fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	if err := socket.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.endpoint, err)
	}
	s.logger.Info("subscribed", "endpoint", s.endpoint)

	for {
		message, err := socket.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("recv %s: %w", s.endpoint, err)
		}
		for _, frame := range message.Frames {
			payload := make([]byte, len(frame))
			copy(payload, frame)
			select {
			case out <- payload:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
