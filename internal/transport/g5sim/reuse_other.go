/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

//go:build !unix

package g5sim

import "syscall"

func reuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}
