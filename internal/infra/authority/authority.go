/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package authority

import (
	"context"

	"github.com/kentakayama/its-station/internal/cits"
)

// Authority is the PKI seen from the station: an Enrollment Authority and an
// Authorization Authority that also publishes certificates by digest.
type Authority interface {
	Enroll(ctx context.Context, request []byte) ([]byte, error)
	Authorize(ctx context.Context, request []byte) ([]byte, error)
	FetchCertificate(ctx context.Context, digest cits.HashedID8) ([]byte, error)
}
