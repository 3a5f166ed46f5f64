/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package cits wraps ETSI TS 103 097 v1.2.1 certificates.
package cits

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/kentakayama/its-station/internal/codec"
)

var (
	ErrUnsupportedKey = errors.New("unsupported verification key")
	ErrEmptyData      = errors.New("empty certificate data")
)

// HashedID8 is the low-order eight bytes of the SHA-256 digest of a
// certificate encoding.
type HashedID8 [8]byte

func (d HashedID8) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d HashedID8) String() string {
	return d.Hex()
}

func DigestOf(data []byte) HashedID8 {
	sum := sha256.Sum256(data)
	var d HashedID8
	copy(d[:], sum[len(sum)-len(d):])
	return d
}

func ParseHashedID8(b []byte) (HashedID8, error) {
	var d HashedID8
	if len(b) != len(d) {
		return d, fmt.Errorf("invalid digest length %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

func ParseHashedID8Hex(s string) (HashedID8, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return HashedID8{}, err
	}
	return ParseHashedID8(b)
}

// Certificate is an immutable parsed certificate.
type Certificate struct {
	Data   []byte
	Digest HashedID8
	body   codec.Certificate
}

func Parse(data []byte) (*Certificate, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	var body codec.Certificate
	if err := codec.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return &Certificate{
		Data:   bytes.Clone(data),
		Digest: DigestOf(data),
		body:   body,
	}, nil
}

func (c *Certificate) SubjectName() string {
	return c.body.SubjectName
}

func (c *Certificate) SubjectType() int64 {
	return c.body.SubjectType
}

// Issuer returns the digest of the signing authority's certificate.
func (c *Certificate) Issuer() []byte {
	return bytes.Clone(c.body.Signer.Digest)
}

func (c *Certificate) Validity() (time.Time, time.Time) {
	return FromTime32(c.body.ValidFrom), FromTime32(c.body.ValidUntil)
}

// Identity is a human-presentable name of the certificate holder.
func (c *Certificate) Identity() string {
	name := c.body.SubjectName
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("%s [%s]", name, c.Digest.Hex())
}

func (c *Certificate) String() string {
	return c.Identity()
}

// VerificationKey returns the P-256 public key carried by the certificate.
func (c *Certificate) VerificationKey() (*ecdsa.PublicKey, error) {
	return DecodeKey(c.body.VerificationKey)
}

// DecodeKey converts a wire public key back to *ecdsa.PublicKey.
func DecodeKey(k codec.PublicKey) (*ecdsa.PublicKey, error) {
	if k.Algorithm != codec.PKAlgorithmECDSANistP256SHA256 {
		return nil, ErrUnsupportedKey
	}
	switch k.Key.Type {
	case codec.EccPointUncompressed:
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(k.Key.X),
			Y:     new(big.Int).SetBytes(k.Key.Y),
		}
		if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
			return nil, ErrUnsupportedKey
		}
		return pub, nil
	case codec.EccPointCompressedLsbY0, codec.EccPointCompressedLsbY1:
		prefix := byte(0x02)
		if k.Key.Type == codec.EccPointCompressedLsbY1 {
			prefix = 0x03
		}
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), append([]byte{prefix}, k.Key.X...))
		if x == nil {
			return nil, ErrUnsupportedKey
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	default:
		return nil, ErrUnsupportedKey
	}
}

func (c *Certificate) Equal(other *Certificate) bool {
	if c == nil || other == nil {
		return c == other
	}
	return bytes.Equal(c.Data, other.Data)
}
