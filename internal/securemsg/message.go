/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package securemsg signs and verifies broadcast messages under an
// Authorization Ticket. A message is a COSE_Sign1 whose kid is the HashedID8
// of the signing ticket and whose payload is a CBOR map.
package securemsg

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/signing"
)

// Message is the signed content.
type Message struct {
	Payload []byte `cbor:"1,keyasint"`
	// GenerationTime is in microseconds since cits.Epoch.
	GenerationTime uint64 `cbor:"2,keyasint"`
}

func (m *Message) Generated() time.Time {
	return cits.Epoch.Add(time.Duration(m.GenerationTime) * time.Microsecond)
}

// Build signs payload with key and names at as the signer.
func Build(at *cits.Certificate, key signing.Backend, payload []byte, now time.Time) ([]byte, error) {
	if at == nil || key == nil {
		return nil, ErrNoCredential
	}
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("init signer: %w", err)
	}

	var generated uint64
	if now.After(cits.Epoch) {
		generated = uint64(now.Sub(cits.Epoch) / time.Microsecond)
	}
	tbs, err := cbor.Marshal(&Message{Payload: payload, GenerationTime: generated})
	if err != nil {
		return nil, err
	}

	headers := cose.Headers{
		Protected: cose.ProtectedHeader{
			cose.HeaderLabelAlgorithm: cose.AlgorithmES256,
		},
		Unprotected: cose.UnprotectedHeader{
			cose.HeaderLabelKeyID: at.Digest[:],
		},
	}
	return cose.Sign1(rand.Reader, signer, headers, tbs, nil)
}

// Envelope is a parsed but not yet verified message.
type Envelope struct {
	Message
	Signer cits.HashedID8

	sign1 cose.Sign1Message
}

func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := env.sign1.UnmarshalCBOR(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSecured, err)
	}
	kid := getKid(env.sign1.Headers.Unprotected)
	if kid == nil {
		return nil, ErrKidIsMissing
	}
	signer, err := cits.ParseHashedID8(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSecured, err)
	}
	env.Signer = signer
	if err := cbor.Unmarshal(env.sign1.Payload, &env.Message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSecured, err)
	}
	return &env, nil
}

// Verify checks the signature against the signer's certificate.
func (e *Envelope) Verify(cert *cits.Certificate) error {
	if cert == nil || cert.Digest != e.Signer {
		return ErrSignerMismatch
	}
	pub, err := cert.VerificationKey()
	if err != nil {
		return err
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return fmt.Errorf("init verifier: %w", err)
	}
	if err := e.sign1.Verify(nil, verifier); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthentic, err)
	}
	return nil
}

func getKid(u cose.UnprotectedHeader) []byte {
	kid, ok := u[cose.HeaderLabelKeyID].([]byte)
	if !ok || len(kid) == 0 {
		return nil
	}
	return kid
}
