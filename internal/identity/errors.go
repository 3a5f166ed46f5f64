/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package identity

import "errors"

var (
	ErrNoKey         = errors.New("no signing key")
	ErrNoEnrolment   = errors.New("no enrollment credential")
	ErrNoAuthorizer  = errors.New("authorization protocol not configured")
	ErrNoEnroller    = errors.New("enrollment protocol not configured")
	ErrNoResolver    = errors.New("certificate resolver not configured")
	ErrNotExportable = errors.New("signing key cannot be exported")
)
