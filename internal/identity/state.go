/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package identity

import (
	"fmt"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/signing"
)

// State is the station's credential set. EC and AT are independently
// optional; both are nil whenever Key is nil.
type State struct {
	Key signing.Backend
	EC  *cits.Certificate
	AT  *cits.Certificate
}

// FileStatus is the outcome of reading one persisted item.
type FileStatus int

const (
	NotFound FileStatus = iota
	Decoded
	DecodeFailed
	// Skipped marks certificates that were not read because no key loaded.
	Skipped
)

func (s FileStatus) String() string {
	switch s {
	case NotFound:
		return "not-found"
	case Decoded:
		return "decoded"
	case DecodeFailed:
		return "decode-failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// LoadResult reports what Load found on disk.
type LoadResult struct {
	Key FileStatus
	EC  FileStatus
	AT  FileStatus
	// Errors holds the decode error of each item whose status is DecodeFailed.
	Errors map[string]error
}

// OK reports whether a signing key is available.
func (r LoadResult) OK() bool {
	return r.Key == Decoded
}

func (r *LoadResult) fail(item string, err error) FileStatus {
	if r.Errors == nil {
		r.Errors = make(map[string]error)
	}
	r.Errors[item] = err
	return DecodeFailed
}
