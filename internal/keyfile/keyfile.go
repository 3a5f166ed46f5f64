/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package keyfile stores the station's private key in a passphrase-protected
// envelope (argon2id + XChaCha20-Poly1305 over PKCS#8).
package keyfile

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/kentakayama/its-station/internal/signing"
	"github.com/kentakayama/its-station/internal/util"
)

// DefaultPassphrase protects itss.key. Stations run unattended, so the
// passphrase is a fixed value rather than an operator secret.
const DefaultPassphrase = "strong-and-secret :-)"

const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "ITSSKEY1\n"

	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1
)

var (
	ErrAuthFailed = errors.New("key file authentication failed")
	ErrInvalid    = errors.New("key file envelope is invalid")
)

type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under passphrase.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	env := envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        salt,
	}
	key := deriveKey(passphrase, &env)
	defer clear(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	env.Nonce = make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(env.Nonce); err != nil {
		return nil, err
	}
	env.Ciphertext = aead.Seal(nil, env.Nonce, plaintext, nil)

	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

// Open reverses Seal.
func Open(passphrase string, data []byte) ([]byte, error) {
	raw, ok := bytes.CutPrefix(data, []byte(filePrefix))
	if !ok {
		return nil, ErrInvalid
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrInvalid
	}
	if !env.valid() {
		return nil, ErrInvalid
	}
	key := deriveKey(passphrase, &env)
	defer clear(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// valid accepts only the parameters Seal writes. A tampered header must not
// reach argon2, which panics on zero threads and allocates whatever memory
// the header asks for.
func (env *envelope) valid() bool {
	return env.Version == envelopeVersion &&
		env.KDF == "argon2id" &&
		env.KDFTime == kdfTime &&
		env.KDFMemoryKB == kdfMemoryKB &&
		env.KDFThreads == kdfThreads &&
		len(env.Salt) == saltSize &&
		len(env.Nonce) == chacha20poly1305.NonceSizeX
}

func deriveKey(passphrase string, env *envelope) []byte {
	return argon2.IDKey([]byte(passphrase), env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
}

// Save writes key to path, replacing any previous file atomically.
func Save(path, passphrase string, key *signing.SoftwareKey) error {
	der, err := key.MarshalPKCS8()
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	defer clear(der)
	sealed, err := Seal(passphrase, der)
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}
	return util.WriteFileAtomic(path, sealed, 0o600)
}

// Load reads a key written by Save. A missing file is reported with an
// error wrapping fs.ErrNotExist.
func Load(path, passphrase string) (*signing.SoftwareKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	der, err := Open(passphrase, data)
	if err != nil {
		return nil, err
	}
	defer clear(der)
	return signing.ParsePKCS8(der)
}
