/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"io"
	"math/big"
)

// SoftwareKey is an in-process P-256 key.
type SoftwareKey struct {
	priv *ecdsa.PrivateKey
}

func GenerateSoftwareKey() (*SoftwareKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate P-256 key: %w", err)
	}
	return &SoftwareKey{priv: priv}, nil
}

func NewSoftwareKey(priv *ecdsa.PrivateKey) (*SoftwareKey, error) {
	if priv == nil || priv.Curve != elliptic.P256() {
		return nil, ErrNotP256
	}
	return &SoftwareKey{priv: priv}, nil
}

// ParsePKCS8 restores a key previously produced by MarshalPKCS8.
func ParsePKCS8(der []byte) (*SoftwareKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS#8: %w", err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrNotP256
	}
	return NewSoftwareKey(priv)
}

func (k *SoftwareKey) MarshalPKCS8() ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(k.priv)
}

func (k *SoftwareKey) Public() crypto.PublicKey {
	return &k.priv.PublicKey
}

func (k *SoftwareKey) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return k.priv.Sign(rand, digest, opts)
}

func (k *SoftwareKey) SignMessage(msg []byte) (*big.Int, *big.Int, error) {
	return signMessage(k.priv, msg)
}

func (k *SoftwareKey) Exportable() bool {
	return true
}

// Equal reports whether both keys hold the same private scalar.
func (k *SoftwareKey) Equal(other *SoftwareKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.priv.Equal(other.priv)
}
