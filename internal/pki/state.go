/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pki

import "fmt"

// ExchangeState tracks one request/response exchange with an authority.
type ExchangeState int

const (
	NoCredential ExchangeState = iota
	RequestBuilt
	RequestSigned
	Transmitted
	Accepted
	Rejected
)

func (s ExchangeState) String() string {
	switch s {
	case NoCredential:
		return "no-credential"
	case RequestBuilt:
		return "request-built"
	case RequestSigned:
		return "request-signed"
	case Transmitted:
		return "transmitted"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
