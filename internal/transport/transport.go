/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package transport defines the broadcast channel the station speaks over.
package transport

import (
	"context"
	"net"
)

// Handler receives one inbound datagram. data is owned by the handler.
type Handler func(ctx context.Context, data []byte, from net.Addr)

// Broadcast is a symmetric, unacknowledged datagram channel.
type Broadcast interface {
	Send(ctx context.Context, data []byte) error
	// Serve delivers inbound datagrams to h until ctx is cancelled.
	Serve(ctx context.Context, h Handler) error
	Close() error
}
