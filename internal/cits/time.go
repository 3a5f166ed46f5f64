/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cits

import "time"

// Epoch is the ITS time reference, 2004-01-01T00:00:00Z.
var Epoch = time.Date(2004, time.January, 1, 0, 0, 0, 0, time.UTC)

// Time32 returns whole seconds elapsed since Epoch.
func Time32(t time.Time) uint64 {
	if t.Before(Epoch) {
		return 0
	}
	return uint64(t.Sub(Epoch) / time.Second)
}

func FromTime32(s uint64) time.Time {
	return Epoch.Add(time.Duration(s) * time.Second)
}
