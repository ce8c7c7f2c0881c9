// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Call sends one request over the daemon's control socket and returns
// the response.
func Call(ctx context.Context, socketPath string, request Request) (*Response, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial control socket %s: %w", socketPath, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if err := writeFrame(conn, request); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	var response Response
	if err := readFrame(conn, &response); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !response.OK {
		return &response, errors.New(response.Error)
	}
	return &response, nil
}
