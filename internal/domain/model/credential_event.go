/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// CredentialEvent records the outcome of one enrollment or authorization
// exchange. Digest is nil when no certificate was issued.
type CredentialEvent struct {
	ID        int64
	Kind      string
	Outcome   string
	Digest    []byte
	CreatedAt time.Time
}
