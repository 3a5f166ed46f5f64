/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package signing holds the station's P-256 signing key behind a capability
// that works for both exportable software keys and hardware token handles.
package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	ErrUnsupported   = errors.New("operation not supported by the signing backend")
	ErrNotP256       = errors.New("key is not a P-256 ECDSA key")
	ErrBadSignature  = errors.New("malformed ECDSA signature")
	ErrKeyNotFound   = errors.New("key not found on token")
	ErrInvalidKeyURI = errors.New("invalid key reference URI")
)

// Backend signs with the station key. Hardware implementations never expose
// private material.
type Backend interface {
	crypto.Signer
	// SignMessage hashes msg with SHA-256 and returns the raw (r, s) pair.
	SignMessage(msg []byte) (r, s *big.Int, err error)
	// Exportable reports whether the private key may be written to disk.
	Exportable() bool
}

// PublicKey returns the backend's key as *ecdsa.PublicKey.
func PublicKey(b Backend) (*ecdsa.PublicKey, error) {
	pub, ok := b.Public().(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, ErrNotP256
	}
	return pub, nil
}

// Verify checks an ECDSA-SHA256 signature over msg.
func Verify(pub *ecdsa.PublicKey, msg []byte, r, s *big.Int) bool {
	if pub == nil || r == nil || s == nil {
		return false
	}
	digest := sha256.Sum256(msg)
	return ecdsa.Verify(pub, digest[:], r, s)
}

func signMessage(signer crypto.Signer, msg []byte) (*big.Int, *big.Int, error) {
	digest := sha256.Sum256(msg)
	der, err := signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, nil, fmt.Errorf("sign: %w", err)
	}
	return ParseSignature(der)
}

// ParseSignature splits an ASN.1 Ecdsa-Sig-Value into r and s.
func ParseSignature(der []byte) (*big.Int, *big.Int, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, ErrBadSignature
	}
	return r, s, nil
}
