/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package codec

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed       = errors.New("malformed encoding")
	ErrTrailingData    = errors.New("trailing data after record")
	ErrUnknownType     = errors.New("unknown record type")
	ErrTypeMismatch    = errors.New("record does not match type name")
	ErrUnknownVariant  = errors.New("unknown choice variant")
	ErrMissingField    = errors.New("required field is missing")
	ErrInvalidCoordLen = errors.New("invalid coordinate length")
)

func malformed(record string) error {
	return fmt.Errorf("%s: %w", record, ErrMalformed)
}

// unknownVariant reports a CHOICE whose tag matches no alternative. The
// input is malformed as well.
func unknownVariant(record string) error {
	return fmt.Errorf("%s: %w: %w", record, ErrMalformed, ErrUnknownVariant)
}
