//go:build !pkcs11

/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package signing

import (
	"crypto"
	"errors"
	"io"
	"math/big"
)

// ErrPKCS11NotSupported is returned when the binary was built without the
// pkcs11 tag.
var ErrPKCS11NotSupported = errors.New("PKCS#11 support not compiled in (build with -tags pkcs11)")

type PKCS11Key struct{}

func OpenPKCS11(cfg PKCS11Config, uri string) (*PKCS11Key, error) {
	if _, err := ParseKeyURI(uri); err != nil {
		return nil, err
	}
	return nil, ErrPKCS11NotSupported
}

func (k *PKCS11Key) Public() crypto.PublicKey { return nil }

func (k *PKCS11Key) Sign(io.Reader, []byte, crypto.SignerOpts) ([]byte, error) {
	return nil, ErrPKCS11NotSupported
}

func (k *PKCS11Key) SignMessage([]byte) (*big.Int, *big.Int, error) {
	return nil, nil, ErrPKCS11NotSupported
}

func (k *PKCS11Key) Exportable() bool { return false }

func (k *PKCS11Key) URI() string { return "" }

func (k *PKCS11Key) Close() error { return nil }
