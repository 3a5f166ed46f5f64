/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package securemsg

import "errors"

var (
	ErrNoCredential   = errors.New("no authorization ticket or signing key")
	ErrNotSecured     = errors.New("not a secured message")
	ErrKidIsMissing   = errors.New("kid is missing")
	ErrSignerMismatch = errors.New("certificate does not match the message signer")
	ErrNotAuthentic   = errors.New("message signature is invalid")
)
