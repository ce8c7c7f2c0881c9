// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
)

// Handler processes one control request.
type Handler func(Request) Response

// Server accepts control connections on a Unix socket. Each
// connection carries one request/response exchange.
type Server struct {
	listener net.Listener
	logger   *slog.Logger
}

// Listen binds the control socket, replacing a stale socket file left
// by a previous run.
func Listen(socketPath string, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("control socket directory: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale control socket: %w", err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("bind control socket: %w", err)
	}
	return &Server{listener: listener, logger: logger}, nil
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("control accept: %w", err)
		}
		go s.handle(conn, handler)
	}
}

func (s *Server) handle(conn net.Conn, handler Handler) {
	defer conn.Close()
	var request Request
	if err := readFrame(conn, &request); err != nil {
		s.logger.Warn("control request unreadable", "error", err)
		return
	}
	response := handler(request)
	if err := writeFrame(conn, response); err != nil {
		s.logger.Warn("control response write failed", "error", err)
	}
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.listener.Close()
}
