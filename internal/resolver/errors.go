/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package resolver

import "errors"

var (
	ErrNotFound       = errors.New("certificate not found")
	ErrDigestMismatch = errors.New("certificate digest does not match the requested digest")
)
