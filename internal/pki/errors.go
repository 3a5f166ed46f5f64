/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pki

import (
	"errors"
	"fmt"

	"github.com/kentakayama/its-station/internal/codec"
)

var (
	ErrRejected           = errors.New("request rejected by authority")
	ErrMissingCertificate = errors.New("response carries no certificate")
	ErrNoEnrolment        = errors.New("no enrollment credential")
)

// RejectionError reports a response whose outcome is not a success variant.
// Dump is a human-readable rendering of the decoded response.
type RejectionError struct {
	Kind     string
	Outcome  codec.Variant
	Response codec.Record
	Dump     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Kind, e.Outcome)
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}
