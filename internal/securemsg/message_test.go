/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package securemsg

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

func newTicket(t *testing.T) (*cits.Certificate, *signing.SoftwareKey) {
	t.Helper()
	key, err := signing.GenerateSoftwareKey()
	require.Nil(t, err)
	pub, err := signing.PublicKey(key)
	require.Nil(t, err)
	at, err := cits.Issue(codec.Certificate{
		Version:         2,
		Signer:          codec.SignerIdentifier{Type: codec.SignerIDSelf},
		SubjectType:     codec.SubjectAuthorizationTicket,
		SubjectName:     "at",
		VerificationKey: cits.EncodeKey(pub, true),
	}, key)
	require.Nil(t, err)
	return at, key
}

func TestBuildParseVerify(t *testing.T) {
	at, key := newTicket(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	data, err := Build(at, key, []byte("payload"), now)
	require.Nil(t, err)

	env, err := Parse(data)
	require.Nil(t, err)
	assert.Equal(t, at.Digest, env.Signer)
	assert.Equal(t, []byte("payload"), env.Payload)
	assert.True(t, now.Equal(env.Generated()))
	assert.Nil(t, env.Verify(at))
}

func TestVerify_BitFlip(t *testing.T) {
	at, key := newTicket(t)
	data, err := Build(at, key, []byte("payload"), time.Now())
	require.Nil(t, err)

	var sign1 cose.Sign1Message
	require.Nil(t, sign1.UnmarshalCBOR(data))
	for i := range len(sign1.Payload) * 8 {
		tampered := sign1
		tampered.Payload = append([]byte(nil), sign1.Payload...)
		tampered.Payload[i/8] ^= 1 << (i % 8)
		raw, err := tampered.MarshalCBOR()
		require.Nil(t, err)

		env, err := Parse(raw)
		if err != nil {
			// the flip broke the CBOR payload itself
			assert.ErrorIs(t, err, ErrNotSecured)
			continue
		}
		assert.ErrorIs(t, env.Verify(at), ErrNotAuthentic, "bit %d", i)
	}
}

func TestVerify_WrongCertificate(t *testing.T) {
	at, key := newTicket(t)
	other, _ := newTicket(t)
	data, err := Build(at, key, []byte("payload"), time.Now())
	require.Nil(t, err)

	env, err := Parse(data)
	require.Nil(t, err)
	assert.ErrorIs(t, env.Verify(other), ErrSignerMismatch)
	assert.ErrorIs(t, env.Verify(nil), ErrSignerMismatch)
}

func TestVerify_ForeignKey(t *testing.T) {
	at, _ := newTicket(t)
	_, impostor := newTicket(t)
	data, err := Build(at, impostor, []byte("payload"), time.Now())
	require.Nil(t, err)

	env, err := Parse(data)
	require.Nil(t, err)
	assert.ErrorIs(t, env.Verify(at), ErrNotAuthentic)
}

func TestBuild_NoCredential(t *testing.T) {
	at, key := newTicket(t)
	_, err := Build(nil, key, nil, time.Now())
	assert.ErrorIs(t, err, ErrNoCredential)
	_, err = Build(at, nil, nil, time.Now())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("not cose"))
	assert.ErrorIs(t, err, ErrNotSecured)

	garbage, err := cbor.Marshal(map[int]string{1: "x"})
	require.Nil(t, err)
	_, err = Parse(garbage)
	assert.ErrorIs(t, err, ErrNotSecured)
}

func TestParse_MissingKid(t *testing.T) {
	_, key := newTicket(t)
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	require.Nil(t, err)
	payload, err := cbor.Marshal(&Message{Payload: []byte("x")})
	require.Nil(t, err)
	data, err := cose.Sign1(rand.Reader, signer, cose.Headers{
		Protected: cose.ProtectedHeader{cose.HeaderLabelAlgorithm: cose.AlgorithmES256},
	}, payload, nil)
	require.Nil(t, err)

	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrKidIsMissing)
}
