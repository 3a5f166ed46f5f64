/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package codec encodes the ETSI TS 102 941 / TS 103 097 records exchanged
// with the Enrollment and Authorization Authorities as DER.
package codec

import (
	"fmt"
	"reflect"
	"sort"

	"golang.org/x/crypto/cryptobyte"
)

// Codec maps schema type names to record constructors. It is built once and
// never modified afterwards, so a single instance is shared by all callers.
type Codec struct {
	types map[string]func() Record
}

var defaultCodec = &Codec{
	types: map[string]func() Record{
		"EccPoint":                              func() Record { return new(EccPoint) },
		"PublicKey":                             func() Record { return new(PublicKey) },
		"SignerIdentifier":                      func() Record { return new(SignerIdentifier) },
		"PsidSspArray":                          func() Record { return new(PsidSspArray) },
		"GeographicRegion":                      func() Record { return new(GeographicRegion) },
		"ToBeSignedEnrolmentCertificateRequest": func() Record { return new(ToBeSignedEnrolmentCertificateRequest) },
		"ToBeSignedAuthCertRequest":             func() Record { return new(ToBeSignedAuthCertRequest) },
		"AuthCertRequest":                       func() Record { return new(AuthCertRequest) },
		"Signature":                             func() Record { return new(Signature) },
		"SignedCertificateChain":                func() Record { return new(SignedCertificateChain) },
		"EnrolmentResponse":                     func() Record { return new(EnrolmentResponse) },
		"AuthorizationResponse":                 func() Record { return new(AuthorizationResponse) },
		"Certificate":                           func() Record { return new(Certificate) },
	},
}

// Default returns the process-wide codec.
func Default() *Codec {
	return defaultCodec
}

// Types lists the registered type names.
func (c *Codec) Types() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode encodes r, which must be a record of the named type.
func (c *Codec) Encode(name string, r Record) ([]byte, error) {
	factory, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownType)
	}
	if reflect.TypeOf(factory()) != reflect.TypeOf(r) {
		return nil, fmt.Errorf("%s: %w", name, ErrTypeMismatch)
	}
	return Marshal(r)
}

// Decode decodes data as the named type.
func (c *Codec) Decode(name string, data []byte) (Record, error) {
	factory, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownType)
	}
	r := factory()
	if err := Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

func Marshal(r Record) ([]byte, error) {
	var b cryptobyte.Builder
	r.MarshalDER(&b)
	return b.Bytes()
}

// Unmarshal decodes exactly one record from data.
func Unmarshal(data []byte, r Record) error {
	s := cryptobyte.String(data)
	if err := r.UnmarshalDER(&s); err != nil {
		return err
	}
	if !s.Empty() {
		return ErrTrailingData
	}
	return nil
}
