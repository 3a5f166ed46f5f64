/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package g5sim

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kentakayama/its-station/internal/config"
)

func TestOpen_UnknownInterface(t *testing.T) {
	_, err := Open(context.Background(), config.G5SimConfig{
		Group:     netip.MustParseAddr("224.1.1.1"),
		Port:      5007,
		TTL:       1,
		Interface: "no-such-if0",
	}, nil)
	assert.ErrorContains(t, err, "no-such-if0")
}
