//go:build pkcs11

/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package signing

import (
	"crypto"
	"fmt"
	"io"
	"math/big"

	"github.com/ThalesGroup/crypto11"
)

// PKCS11Key is a key pair held on a PKCS#11 token.
type PKCS11Key struct {
	ctx    *crypto11.Context
	signer crypto11.Signer
	uri    string
}

// OpenPKCS11 finds the key pair referenced by uri on the configured token.
func OpenPKCS11(cfg PKCS11Config, uri string) (*PKCS11Key, error) {
	label, err := ParseKeyURI(uri)
	if err != nil {
		return nil, err
	}
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       cfg.ModulePath,
		TokenLabel: cfg.TokenLabel,
		Pin:        cfg.PIN,
	})
	if err != nil {
		return nil, fmt.Errorf("configure PKCS#11: %w", err)
	}
	signer, err := ctx.FindKeyPair(nil, []byte(label))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("find key pair %q: %w", label, err)
	}
	if signer == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}
	key := &PKCS11Key{ctx: ctx, signer: signer, uri: uri}
	if _, err := PublicKey(key); err != nil {
		ctx.Close()
		return nil, err
	}
	return key, nil
}

func (k *PKCS11Key) Public() crypto.PublicKey {
	return k.signer.Public()
}

func (k *PKCS11Key) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return k.signer.Sign(rand, digest, opts)
}

func (k *PKCS11Key) SignMessage(msg []byte) (*big.Int, *big.Int, error) {
	return signMessage(k.signer, msg)
}

func (k *PKCS11Key) Exportable() bool {
	return false
}

func (k *PKCS11Key) URI() string {
	return k.uri
}

func (k *PKCS11Key) Close() error {
	return k.ctx.Close()
}
