/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// G5SimConfig describes the multicast group used to simulate ITS-G5.
type G5SimConfig struct {
	Group netip.Addr
	Port  int
	TTL   int
	// Interface is empty for the system default.
	Interface string
}

func (c G5SimConfig) Address() string {
	return netip.AddrPortFrom(c.Group, uint16(c.Port)).String()
}

// ParseG5Sim parses "GROUP PORT TTL IFACE", e.g. "224.1.1.1 5007 32 auto".
func ParseG5Sim(s string) (G5SimConfig, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return G5SimConfig{}, fmt.Errorf("%w: g5sim %q: expected GROUP PORT TTL IFACE", ErrInvalidConfig, s)
	}

	group, err := netip.ParseAddr(fields[0])
	if err != nil || !group.Is4() || !group.IsMulticast() {
		return G5SimConfig{}, fmt.Errorf("%w: g5sim group %q is not an IPv4 multicast address", ErrInvalidConfig, fields[0])
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil || port < 1 || port > 65535 {
		return G5SimConfig{}, fmt.Errorf("%w: g5sim port %q", ErrInvalidConfig, fields[1])
	}
	ttl, err := strconv.Atoi(fields[2])
	if err != nil || ttl < 0 || ttl > 255 {
		return G5SimConfig{}, fmt.Errorf("%w: g5sim ttl %q", ErrInvalidConfig, fields[2])
	}
	iface := fields[3]
	if iface == "auto" {
		iface = ""
	}
	return G5SimConfig{Group: group, Port: port, TTL: ttl, Interface: iface}, nil
}
