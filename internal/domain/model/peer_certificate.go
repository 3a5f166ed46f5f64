/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// PeerCertificate is a certificate of another station, recorded when the
// resolver first loads it.
type PeerCertificate struct {
	ID          int64
	Digest      []byte
	Identity    string
	Source      string
	FirstSeenAt time.Time
}
