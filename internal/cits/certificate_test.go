/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cits

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/signing"
)

func issueTestCertificate(t *testing.T, name string, compressed bool) (*Certificate, *signing.SoftwareKey, *signing.SoftwareKey) {
	t.Helper()
	issuer, err := signing.GenerateSoftwareKey()
	require.Nil(t, err)
	subject, err := signing.GenerateSoftwareKey()
	require.Nil(t, err)
	pub, err := signing.PublicKey(subject)
	require.Nil(t, err)

	cert, err := Issue(codec.Certificate{
		Version:         2,
		Signer:          codec.SignerIdentifier{Type: codec.SignerIDDigest, Digest: []byte("rootroot")},
		SubjectType:     codec.SubjectAuthorizationTicket,
		SubjectName:     name,
		ValidFrom:       Time32(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		ValidUntil:      Time32(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		VerificationKey: EncodeKey(pub, compressed),
	}, issuer)
	require.Nil(t, err)
	return cert, issuer, subject
}

func TestDigestOf(t *testing.T) {
	data := []byte("certificate bytes")
	sum := sha256.Sum256(data)
	d := DigestOf(data)
	assert.Equal(t, sum[24:], d[:])

	parsed, err := ParseHashedID8Hex(d.Hex())
	require.Nil(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseHashedID8([]byte{1, 2, 3})
	assert.NotNil(t, err)
}

func TestIssue_ParseAndVerify(t *testing.T) {
	for _, compressed := range []bool{false, true} {
		cert, issuer, subject := issueTestCertificate(t, "station-1", compressed)

		parsed, err := Parse(cert.Data)
		require.Nil(t, err)
		assert.True(t, cert.Equal(parsed))
		assert.Equal(t, DigestOf(cert.Data), parsed.Digest)
		assert.Equal(t, "station-1", parsed.SubjectName())
		assert.Equal(t, []byte("rootroot"), parsed.Issuer())
		assert.Contains(t, parsed.Identity(), parsed.Digest.Hex())

		key, err := parsed.VerificationKey()
		require.Nil(t, err)
		want, err := signing.PublicKey(subject)
		require.Nil(t, err)
		assert.True(t, want.Equal(key))

		issuerPub, err := signing.PublicKey(issuer)
		require.Nil(t, err)
		assert.Nil(t, parsed.CheckSignature(issuerPub))
		assert.ErrorIs(t, parsed.CheckSignature(want), ErrSignatureInvalid)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyData)
	_, err = Parse([]byte{0x30, 0x02, 0x01})
	assert.ErrorIs(t, err, codec.ErrMalformed)
}

func TestIdentity_Anonymous(t *testing.T) {
	cert, _, _ := issueTestCertificate(t, "", false)
	assert.Equal(t, "anonymous ["+cert.Digest.Hex()+"]", cert.Identity())
}

func TestTime32(t *testing.T) {
	assert.Equal(t, uint64(0), Time32(Epoch))
	assert.Equal(t, uint64(0), Time32(Epoch.Add(-time.Hour)))
	assert.Equal(t, uint64(3600), Time32(Epoch.Add(time.Hour)))
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, ts.Equal(FromTime32(Time32(ts))))
}
