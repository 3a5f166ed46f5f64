/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package codec

import (
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// context tags used by the composite request records (ETSI TS 102 941)
const (
	TagSignerIdentifier byte = 0xa0
	TagToBeSigned       byte = 0xa1
	TagSignature        byte = 0xa2
	TagAnonRequest      byte = 0xa0

	tagSequence byte = 0x30
)

var (
	tagPointY        = asn1.Tag(0).ContextSpecific()
	tagCRL           = asn1.Tag(0).ContextSpecific()
	tagCertSignature = asn1.Tag(0).ContextSpecific().Constructed()
)

func contextTag(n uint8) asn1.Tag {
	return asn1.Tag(n).ContextSpecific().Constructed()
}

// EncodeLength returns the DER length octets for a content of n bytes.
func EncodeLength(n int) []byte {
	var b cryptobyte.Builder
	b.AddASN1(asn1.OCTET_STRING, func(b *cryptobyte.Builder) {
		b.AddBytes(make([]byte, n))
	})
	encoded := b.BytesOrPanic()
	return encoded[1 : len(encoded)-n]
}

// WrapSequence wraps already encoded content as a top-level SEQUENCE.
func WrapSequence(content []byte) []byte {
	return wrap(tagSequence, content)
}

// Retag replaces the single-octet identifier of an encoded element, turning
// e.g. a universal SEQUENCE into a context-specific [n] IMPLICIT field.
func Retag(tag byte, encoded []byte) []byte {
	if len(encoded) == 0 {
		return nil
	}
	out := make([]byte, len(encoded))
	out[0] = tag
	copy(out[1:], encoded[1:])
	return out
}

func wrap(tag byte, content []byte) []byte {
	out := make([]byte, 0, len(content)+6)
	out = append(out, tag)
	out = append(out, EncodeLength(len(content))...)
	return append(out, content...)
}
