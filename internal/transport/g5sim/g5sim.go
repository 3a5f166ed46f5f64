/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package g5sim simulates the ITS-G5 radio channel with UDP IPv4 multicast.
// Every station on the group receives every datagram, its own included.
package g5sim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/kentakayama/its-station/internal/config"
	"github.com/kentakayama/its-station/internal/transport"
)

const maxDatagram = 65535

var ErrClosed = errors.New("simulator closed")

type Simulator struct {
	conn  net.PacketConn
	pc    *ipv4.PacketConn
	group *net.UDPAddr
	// filter is set when the platform reports the destination address
	filter bool

	logger *zap.SugaredLogger
}

var _ transport.Broadcast = (*Simulator)(nil)

// Open joins the configured group. The socket is bound to the group port on
// all addresses with address reuse, so several stations can share a host.
func Open(ctx context.Context, cfg config.G5SimConfig, logger *zap.Logger) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var ifi *net.Interface
	if cfg.Interface != "" {
		var err error
		ifi, err = net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("multicast interface %q: %w", cfg.Interface, err)
		}
	}

	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		conn:   conn,
		pc:     ipv4.NewPacketConn(conn),
		group:  &net.UDPAddr{IP: net.IP(cfg.Group.AsSlice()), Port: cfg.Port},
		logger: logger.Sugar(),
	}
	if err := s.setup(ifi, cfg.TTL); err != nil {
		conn.Close()
		return nil, err
	}
	s.logger.Infof("G5 simulator joined %s ttl=%d", cfg.Address(), cfg.TTL)
	return s, nil
}

func (s *Simulator) setup(ifi *net.Interface, ttl int) error {
	if err := s.pc.JoinGroup(ifi, &net.UDPAddr{IP: s.group.IP}); err != nil {
		return fmt.Errorf("join %s: %w", s.group.IP, err)
	}
	if ifi != nil {
		if err := s.pc.SetMulticastInterface(ifi); err != nil {
			return fmt.Errorf("set multicast interface: %w", err)
		}
	}
	if err := s.pc.SetMulticastTTL(ttl); err != nil {
		return fmt.Errorf("set multicast ttl: %w", err)
	}
	if err := s.pc.SetMulticastLoopback(true); err != nil {
		return fmt.Errorf("enable multicast loopback: %w", err)
	}
	if err := s.pc.SetControlMessage(ipv4.FlagDst, true); err == nil {
		s.filter = true
	}
	return nil
}

// Send transmits one datagram to the group. There is no acknowledgment.
func (s *Simulator) Send(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		s.pc.SetWriteDeadline(deadline)
	}
	_, err := s.pc.WriteTo(data, nil, s.group)
	return err
}

// Serve reads datagrams until ctx is cancelled or the simulator is closed.
// Cancellation is not an error.
func (s *Simulator) Serve(ctx context.Context, h transport.Handler) error {
	stop := context.AfterFunc(ctx, func() {
		s.pc.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, cm, from, err := s.pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrClosed
			}
			return err
		}
		if s.filter && cm != nil && !cm.Dst.Equal(s.group.IP) {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		h(ctx, data, from)
	}
}

func (s *Simulator) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Simulator) Close() error {
	if err := s.pc.LeaveGroup(nil, &net.UDPAddr{IP: s.group.IP}); err != nil {
		s.logger.Debugf("leave group: %v", err)
	}
	return s.conn.Close()
}
