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

// EnrolmentRequest ::= SEQUENCE {
//   signerEnrolRequest [0] SignerIdentifier,
//   enrolCertRequest   [1] ToBeSignedEnrolmentCertificateRequest,
//   signature          [2] Signature }
type EnrolmentRequest struct {
	Signer    SignerIdentifier
	Request   ToBeSignedEnrolmentCertificateRequest
	Signature *Signature
}

// AuthorizationRequest ::= SEQUENCE {
//   signerAuthRequest [0] SignerIdentifier,
//   authCertRequest   [1] EXPLICIT AuthCertRequest,
//   signature         [2] Signature }
type AuthorizationRequest struct {
	Signer    SignerIdentifier
	Request   AuthCertRequest
	Signature *Signature
}

// SigningInput returns the tagged signer and to-be-signed fields. The
// signature covers exactly these bytes.
func (r *EnrolmentRequest) SigningInput() ([]byte, error) {
	signer, err := Marshal(&r.Signer)
	if err != nil {
		return nil, err
	}
	tbs, err := Marshal(&r.Request)
	if err != nil {
		return nil, err
	}
	out := Retag(TagSignerIdentifier, signer)
	return append(out, Retag(TagToBeSigned, tbs)...), nil
}

// Encode appends the signature field to the signing input and wraps the
// result as a SEQUENCE.
func (r *EnrolmentRequest) Encode() ([]byte, error) {
	input, err := r.SigningInput()
	if err != nil {
		return nil, err
	}
	return appendSignature(input, r.Signature)
}

func (r *AuthorizationRequest) SigningInput() ([]byte, error) {
	signer, err := Marshal(&r.Signer)
	if err != nil {
		return nil, err
	}
	choice, err := Marshal(&r.Request)
	if err != nil {
		return nil, err
	}
	// the chosen variant carries its own [0] tag and is wrapped once more
	acr := Retag(TagAnonRequest, choice)
	out := Retag(TagSignerIdentifier, signer)
	out = append(out, TagToBeSigned)
	out = append(out, EncodeLength(len(acr))...)
	return append(out, acr...), nil
}

func (r *AuthorizationRequest) Encode() ([]byte, error) {
	input, err := r.SigningInput()
	if err != nil {
		return nil, err
	}
	return appendSignature(input, r.Signature)
}

func appendSignature(input []byte, sig *Signature) ([]byte, error) {
	if sig == nil {
		return nil, ErrMissingField
	}
	encoded, err := Marshal(sig)
	if err != nil {
		return nil, err
	}
	return WrapSequence(append(input, Retag(TagSignature, encoded)...)), nil
}

// DecodeEnrolmentRequest parses an encoded request and also returns the
// bytes its signature was computed over.
func DecodeEnrolmentRequest(data []byte) (*EnrolmentRequest, []byte, error) {
	fields, err := splitRequest(data, "EnrolmentRequest")
	if err != nil {
		return nil, nil, err
	}
	var r EnrolmentRequest
	if err := Unmarshal(Retag(tagSequence, fields.signer), &r.Signer); err != nil {
		return nil, nil, err
	}
	if err := Unmarshal(Retag(tagSequence, fields.tbs), &r.Request); err != nil {
		return nil, nil, err
	}
	r.Signature = new(Signature)
	if err := Unmarshal(Retag(tagSequence, fields.signature), r.Signature); err != nil {
		return nil, nil, err
	}
	return &r, fields.signingInput(), nil
}

func DecodeAuthorizationRequest(data []byte) (*AuthorizationRequest, []byte, error) {
	fields, err := splitRequest(data, "AuthorizationRequest")
	if err != nil {
		return nil, nil, err
	}
	var r AuthorizationRequest
	if err := Unmarshal(Retag(tagSequence, fields.signer), &r.Signer); err != nil {
		return nil, nil, err
	}
	inner := cryptobyte.String(fields.tbs)
	var acr cryptobyte.String
	if !inner.ReadASN1(&acr, contextTag(1)) || !inner.Empty() {
		return nil, nil, malformed("AuthorizationRequest")
	}
	if err := Unmarshal(acr, &r.Request); err != nil {
		return nil, nil, err
	}
	r.Signature = new(Signature)
	if err := Unmarshal(Retag(tagSequence, fields.signature), r.Signature); err != nil {
		return nil, nil, err
	}
	return &r, fields.signingInput(), nil
}

type requestFields struct {
	signer    []byte
	tbs       []byte
	signature []byte
}

func (f requestFields) signingInput() []byte {
	out := make([]byte, 0, len(f.signer)+len(f.tbs))
	out = append(out, f.signer...)
	return append(out, f.tbs...)
}

func splitRequest(data []byte, record string) (requestFields, error) {
	s := cryptobyte.String(data)
	var seq, signer, tbs, sig cryptobyte.String
	if !s.ReadASN1(&seq, asn1.SEQUENCE) || !s.Empty() {
		return requestFields{}, malformed(record)
	}
	if !seq.ReadASN1Element(&signer, contextTag(0)) ||
		!seq.ReadASN1Element(&tbs, contextTag(1)) ||
		!seq.ReadASN1Element(&sig, contextTag(2)) ||
		!seq.Empty() {
		return requestFields{}, malformed(record)
	}
	return requestFields{signer: signer, tbs: tbs, signature: sig}, nil
}
