/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cits

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

var ErrSignatureInvalid = errors.New("certificate signature invalid")

// EncodeKey converts a P-256 public key to its wire form. Compressed points
// select the LSB variant from the parity of Y.
func EncodeKey(pub *ecdsa.PublicKey, compressed bool) codec.PublicKey {
	t := codec.EccPointUncompressed
	if compressed {
		t = codec.EccPointCompressedLsbY0
		if pub.Y.Bit(0) == 1 {
			t = codec.EccPointCompressedLsbY1
		}
	}
	return codec.PublicKey{
		Algorithm: codec.PKAlgorithmECDSANistP256SHA256,
		Key:       codec.NewEccPoint(t, pub.X, pub.Y),
	}
}

// Issue signs body with issuer and returns the resulting certificate. It is
// used by authorities and by tests that stand in for them.
func Issue(body codec.Certificate, issuer signing.Backend) (*Certificate, error) {
	body.Signature = nil
	tbs, err := body.ToBeSigned()
	if err != nil {
		return nil, fmt.Errorf("encode certificate body: %w", err)
	}
	r, s, err := issuer.SignMessage(tbs)
	if err != nil {
		return nil, err
	}
	sig := codec.NewSignature(r, s)
	body.Signature = &sig
	data, err := codec.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("encode certificate: %w", err)
	}
	return Parse(data)
}

// CheckSignature verifies the certificate was signed by issuer.
func (c *Certificate) CheckSignature(issuer *ecdsa.PublicKey) error {
	if c.body.Signature == nil {
		return ErrSignatureInvalid
	}
	tbs, err := c.body.ToBeSigned()
	if err != nil {
		return err
	}
	r, s := c.body.Signature.RS()
	if !signing.Verify(issuer, tbs, r, s) {
		return ErrSignatureInvalid
	}
	return nil
}
