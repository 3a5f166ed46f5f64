/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pki

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentakayama/its-station/internal/cits"
	"github.com/kentakayama/its-station/internal/codec"
	"github.com/kentakayama/its-station/internal/config"
	"github.com/kentakayama/its-station/internal/infra/authority"
	"github.com/kentakayama/its-station/internal/metrics"
	"github.com/kentakayama/its-station/internal/pki/pkitest"
	"github.com/kentakayama/its-station/internal/signing"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testOptions(m *metrics.Metrics) Options {
	return Options{
		SignerID:       "This is the identification of the signer",
		EAID:           "EAName",
		AdditionalData: "ahoj",
		Metrics:        m,
		Now:            func() time.Time { return fixedNow },
	}
}

func newClient(t *testing.T, ca *pkitest.Authority) *authority.Client {
	t.Helper()
	c, err := authority.NewClient(config.AuthorityConfig{EnrollmentURL: ca.URL(), AuthorizationURL: ca.URL()})
	require.Nil(t, err)
	return c
}

func newKey(t *testing.T) *signing.SoftwareKey {
	t.Helper()
	key, err := signing.GenerateSoftwareKey()
	require.Nil(t, err)
	return key
}

func TestEnroller_BuildRequest(t *testing.T) {
	key := newKey(t)
	req, err := NewEnroller(nil, testOptions(nil)).BuildRequest(key)
	require.Nil(t, err)

	tbs := req.Request
	assert.Equal(t, codec.SignerIDCertificate, req.Signer.Type)
	assert.Equal(t, []byte("12345678"), req.Signer.Digest)
	assert.Equal(t, codec.VersionAndTypeExplicit, tbs.VersionAndType)
	assert.Equal(t, codec.SubjectSecDataExchCsr, tbs.SubjectType)
	assert.Equal(t, cits.Time32(fixedNow), tbs.RequestTime)
	assert.Equal(t, tbs.RequestTime+3600, tbs.Expiration)
	assert.Equal(t, "EAName", tbs.SpecificData.EAID)
	assert.Equal(t, codec.EccPointUncompressed, tbs.VerificationKey.Key.Type)
	assert.NotEqual(t, codec.EccPointUncompressed, tbs.ResponseEncryptionKey.Key.Type)

	input, err := req.SigningInput()
	require.Nil(t, err)
	pub, err := signing.PublicKey(key)
	require.Nil(t, err)
	r, s := req.Signature.RS()
	assert.True(t, signing.Verify(pub, input, r, s))
}

func TestAuthorizer_BuildRequest_RequiresEC(t *testing.T) {
	_, err := NewAuthorizer(nil, testOptions(nil)).BuildRequest(newKey(t), nil)
	assert.ErrorIs(t, err, ErrNoEnrolment)
}

func TestEnrollAuthorize(t *testing.T) {
	ca := pkitest.New(t)
	client := newClient(t, ca)
	m := metrics.New()
	key := newKey(t)

	enrolled, err := NewEnroller(client, testOptions(m)).Enroll(context.Background(), key)
	require.Nil(t, err)
	assert.Equal(t, codec.VariantSuccessfulEnrolment, enrolled.Outcome)
	assert.Equal(t, codec.SubjectEnrollmentCredential, enrolled.Certificate.SubjectType())

	ca.CRL = []byte{0x01, 0x02, 0x03}
	authorized, err := NewAuthorizer(client, testOptions(m)).Authorize(context.Background(), key, enrolled.Certificate)
	require.Nil(t, err)
	assert.Equal(t, codec.VariantSuccessfulExplicitAuthorization, authorized.Outcome)
	assert.Equal(t, codec.SubjectAuthorizationTicket, authorized.Certificate.SubjectType())

	last := ca.LastAuthorization()
	require.NotNil(t, last)
	assert.Equal(t, enrolled.Certificate.Digest[:], last.Signer.Digest)
	assert.Nil(t, last.Signer.ID)
	assert.Equal(t, []byte("ahoj"), last.Request.AnonRequest.SpecificData.AdditionalData)
	assert.Equal(t, codec.SubjectSecDataExchAnon, last.Request.AnonRequest.SubjectType)

	// the AT certifies the station key
	atKey, err := authorized.Certificate.VerificationKey()
	require.Nil(t, err)
	pub, err := signing.PublicKey(key)
	require.Nil(t, err)
	assert.True(t, pub.Equal(atKey))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exchanges.WithLabelValues(KindEnrollment, string(codec.VariantSuccessfulEnrolment))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exchanges.WithLabelValues(KindAuthorization, string(codec.VariantSuccessfulExplicitAuthorization))))
}

func TestAuthorize_Implicit(t *testing.T) {
	ca := pkitest.New(t)
	client := newClient(t, ca)
	key := newKey(t)

	enrolled, err := NewEnroller(client, testOptions(nil)).Enroll(context.Background(), key)
	require.Nil(t, err)

	ca.AuthorizeOutcome = codec.VariantSuccessfulImplicitAuthorization
	authorized, err := NewAuthorizer(client, testOptions(nil)).Authorize(context.Background(), key, enrolled.Certificate)
	require.Nil(t, err)
	assert.Equal(t, codec.VariantSuccessfulImplicitAuthorization, authorized.Outcome)
}

func TestEnroll_Rejected(t *testing.T) {
	ca := pkitest.New(t)
	ca.EnrollOutcome = codec.VariantFailedEnrolment

	res, err := NewEnroller(newClient(t, ca), testOptions(nil)).Enroll(context.Background(), newKey(t))
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrRejected)

	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, KindEnrollment, rejection.Kind)
	assert.Equal(t, codec.VariantFailedEnrolment, rejection.Outcome)
	assert.Contains(t, rejection.Dump, "enrolment denied")
}

func TestAuthorize_Rejected(t *testing.T) {
	ca := pkitest.New(t)
	client := newClient(t, ca)
	key := newKey(t)

	enrolled, err := NewEnroller(client, testOptions(nil)).Enroll(context.Background(), key)
	require.Nil(t, err)

	ca.AuthorizeOutcome = codec.VariantFailedAuthorization
	res, err := NewAuthorizer(client, testOptions(nil)).Authorize(context.Background(), key, enrolled.Certificate)
	assert.Nil(t, res)

	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, codec.VariantFailedAuthorization, rejection.Outcome)
	assert.Contains(t, rejection.Dump, "authorization denied")
}

func TestAuthorize_UnknownEC(t *testing.T) {
	ca := pkitest.New(t)
	client := newClient(t, ca)
	key := newKey(t)

	// an EC the authority never issued
	stranger, err := ca.IssueTicket(key, "stranger")
	require.Nil(t, err)

	_, err = NewAuthorizer(client, testOptions(nil)).Authorize(context.Background(), key, stranger)
	assert.ErrorIs(t, err, authority.ErrUnexpectedStatus)
	assert.False(t, errors.Is(err, ErrRejected))
}

type cannedTransport []byte

func (c cannedTransport) Enroll(context.Context, []byte) ([]byte, error)    { return c, nil }
func (c cannedTransport) Authorize(context.Context, []byte) ([]byte, error) { return c, nil }

func TestEnroll_MalformedResponse(t *testing.T) {
	_, err := NewEnroller(cannedTransport{0x30, 0x05}, testOptions(nil)).Enroll(context.Background(), newKey(t))
	assert.ErrorIs(t, err, codec.ErrMalformed)
	assert.ErrorIs(t, err, codec.ErrUnknownVariant)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestEnroll_InvalidCertificate(t *testing.T) {
	data, err := codec.Marshal(&codec.EnrolmentResponse{
		Outcome:         codec.VariantSuccessfulEnrolment,
		SignedCertChain: &codec.SignedCertificateChain{RootCertificate: codec.WrapSequence([]byte{0x02, 0x01, 0x01})},
	})
	require.Nil(t, err)
	_, err = NewEnroller(cannedTransport(data), testOptions(nil)).Enroll(context.Background(), newKey(t))
	assert.ErrorIs(t, err, codec.ErrMalformed)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestExchangeState_String(t *testing.T) {
	assert.Equal(t, "request-signed", RequestSigned.String())
	assert.Equal(t, "unknown(42)", ExchangeState(42).String())
}
